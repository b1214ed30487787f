package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestIssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u, tokens := env.register(t, "alice")

	t.Run("access", func(t *testing.T) {
		p, err := env.Authn.Authenticate(ctx, domain.TokenAccess, tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, p.User.ID)
		require.NotEmpty(t, p.DeviceID)
		require.Nil(t, p.Record)
	})

	t.Run("refresh", func(t *testing.T) {
		p, err := env.Authn.Authenticate(ctx, domain.TokenRefresh, tokens.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, p.User.ID)
		require.NotNil(t, p.Record)
		require.Equal(t, p.DeviceID, p.Record.DeviceID)
	})

	t.Run("reset password", func(t *testing.T) {
		raw, err := env.Tokens.IssueResetPasswordToken(ctx, u.ID)
		require.NoError(t, err)

		p, err := env.Authn.Authenticate(ctx, domain.TokenResetPassword, raw)
		require.NoError(t, err)
		require.Equal(t, domain.TokenResetPassword, p.Record.Type)
	})

	t.Run("verify email", func(t *testing.T) {
		raw, err := env.Tokens.IssueVerifyEmailToken(ctx, u.ID)
		require.NoError(t, err)

		p, err := env.Authn.Authenticate(ctx, domain.TokenVerifyEmail, raw)
		require.NoError(t, err)
		require.Equal(t, u.ID, p.User.ID)
	})
}

func TestAuthenticateRejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u, tokens := env.register(t, "bob")

	t.Run("empty", func(t *testing.T) {
		_, err := env.Authn.Authenticate(ctx, domain.TokenAccess, "")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("refresh presented as access", func(t *testing.T) {
		_, err := env.Authn.Authenticate(ctx, domain.TokenAccess, tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("access presented as refresh", func(t *testing.T) {
		_, err := env.Authn.Authenticate(ctx, domain.TokenRefresh, tokens.AccessToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("signed with another keyring", func(t *testing.T) {
		other, err := jwtx.NewKeyring("authbase-test", map[jwtx.TokenType][]byte{
			jwtx.TypeAccess:        []byte("another-access-secret-0123456"),
			jwtx.TypeRefresh:       []byte("another-refresh-secret-012345"),
			jwtx.TypeResetPassword: []byte("another-reset-secret-01234567"),
			jwtx.TypeVerifyEmail:   []byte("another-verify-secret-0123456"),
		})
		require.NoError(t, err)

		forged, err := other.Sign(jwtx.NewClaims(u.ID, jwtx.TypeAccess, "device", "authbase-test", time.Minute, time.Now()))
		require.NoError(t, err)

		_, err = env.Authn.Authenticate(ctx, domain.TokenAccess, forged)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("validly signed but never stored", func(t *testing.T) {
		raw, err := env.Tokens.Keys.Sign(jwtx.NewClaims(u.ID, jwtx.TypeResetPassword, "", "authbase-test", time.Minute, time.Now().Add(-time.Second)))
		require.NoError(t, err)

		// a real token exists, but the presented one does not match its fingerprint
		_, err = env.Tokens.IssueResetPasswordToken(ctx, u.ID)
		require.NoError(t, err)

		_, err = env.Authn.Authenticate(ctx, domain.TokenResetPassword, raw)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("inactive user", func(t *testing.T) {
		carol, carolTokens := env.register(t, "carol")
		off := false
		_, err := env.Users.UpdateUser(ctx, carol.ID, UserChanges{IsActive: &off})
		require.NoError(t, err)

		_, err = env.Authn.Authenticate(ctx, domain.TokenAccess, carolTokens.AccessToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestAccessTokenDiesWithItsDevice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u, first := env.register(t, "dave")

	second, err := env.Tokens.IssueAuthTokens(ctx, u.ID)
	require.NoError(t, err)

	p, err := env.Authn.Authenticate(ctx, domain.TokenAccess, first.AccessToken)
	require.NoError(t, err)
	require.NoError(t, env.Tokens.Revoke(ctx, u.ID, domain.TokenRefresh, p.DeviceID))

	_, err = env.Authn.Authenticate(ctx, domain.TokenAccess, first.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)

	// the other device is untouched
	_, err = env.Authn.Authenticate(ctx, domain.TokenAccess, second.AccessToken)
	require.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u, _ := env.register(t, "erin")

	require.NoError(t, env.Tokens.Revoke(ctx, u.ID, domain.TokenVerifyEmail, ""))
	require.NoError(t, env.Tokens.Revoke(ctx, u.ID, domain.TokenVerifyEmail, ""))

	n, err := env.Tokens.RevokeAll(ctx, u.ID, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = env.Tokens.RevokeAll(ctx, u.ID, "")
	require.NoError(t, err)
	require.Zero(t, n)
}
