package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authbase/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-0123456789abcdef")
	refreshSecret = []byte("refresh-secret-0123456789abcdef")
)

func signAccess(t *testing.T, secret []byte, ttl time.Duration) string {
	t.Helper()

	s, err := jwtx.NewHMACSigner(secret)
	require.NoError(t, err)

	token, err := s.Sign(jwtx.NewClaims("user-1", jwtx.TypeAccess, "device-1", "authbase", ttl, time.Now()))
	require.NoError(t, err)
	return token
}

func TestHMACSignVerify(t *testing.T) {
	token := signAccess(t, accessSecret, time.Minute)
	require.Len(t, strings.Split(token, "."), 3)

	v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "device-1", claims.DeviceID())
	require.Equal(t, jwtx.TypeAccess, claims.Type)
}

func TestHMACSignerRejectsWeakSecret(t *testing.T) {
	_, err := jwtx.NewHMACSigner([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHMACVerifyFailures(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token := signAccess(t, accessSecret, time.Minute)
		v := jwtx.NewHMACVerifier(refreshSecret, "authbase", jwtx.TypeAccess)
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("wrong type", func(t *testing.T) {
		token := signAccess(t, accessSecret, time.Minute)
		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeRefresh)
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrTypeMismatch)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := signAccess(t, accessSecret, time.Minute)
		v := jwtx.NewHMACVerifier(accessSecret, "someone-else", jwtx.TypeAccess)
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		token := signAccess(t, accessSecret, -time.Minute)
		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
		_, err := v.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("other hmac algorithm", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", jwtx.TypeAccess, "device-1", "authbase", time.Minute, time.Now())
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(accessSecret)
		require.NoError(t, err)

		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
		_, err = v.Verify(token)
		require.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", jwtx.TypeAccess, "device-1", "authbase", time.Minute, time.Now())
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
		_, err = v.Verify(token)
		require.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		s, err := jwtx.NewHMACSigner(accessSecret)
		require.NoError(t, err)
		claims := jwtx.NewClaims("user-1", jwtx.TypeAccess, "device-1", "authbase", time.Minute, time.Now())
		claims.ExpiresAt = nil
		token, err := s.Sign(claims)
		require.NoError(t, err)

		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("missing subject", func(t *testing.T) {
		s, err := jwtx.NewHMACSigner(accessSecret)
		require.NoError(t, err)
		token, err := s.Sign(jwtx.NewClaims("", jwtx.TypeAccess, "device-1", "authbase", time.Minute, time.Now()))
		require.NoError(t, err)

		v := jwtx.NewHMACVerifier(accessSecret, "authbase", jwtx.TypeAccess)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func testSecrets() map[jwtx.TokenType][]byte {
	return map[jwtx.TokenType][]byte{
		jwtx.TypeAccess:        []byte("access-secret-0123456789abcdef"),
		jwtx.TypeRefresh:       []byte("refresh-secret-0123456789abcdef"),
		jwtx.TypeResetPassword: []byte("reset-secret-0123456789abcdef"),
		jwtx.TypeVerifyEmail:   []byte("verify-secret-0123456789abcdef"),
	}
}

func TestKeyring(t *testing.T) {
	t.Run("round trip per type", func(t *testing.T) {
		k, err := jwtx.NewKeyring("authbase", testSecrets())
		require.NoError(t, err)
		require.Equal(t, "authbase", k.Issuer())

		for _, typ := range []jwtx.TokenType{jwtx.TypeAccess, jwtx.TypeRefresh, jwtx.TypeResetPassword, jwtx.TypeVerifyEmail} {
			token, err := k.Sign(jwtx.NewClaims("user-1", typ, "", "authbase", time.Minute, time.Now()))
			require.NoError(t, err)

			claims, err := k.Verify(typ, token)
			require.NoError(t, err)
			require.Equal(t, typ, claims.Type)
		}
	})

	t.Run("tokens do not cross types", func(t *testing.T) {
		k, err := jwtx.NewKeyring("authbase", testSecrets())
		require.NoError(t, err)

		token, err := k.Sign(jwtx.NewClaims("user-1", jwtx.TypeResetPassword, "", "authbase", time.Minute, time.Now()))
		require.NoError(t, err)

		_, err = k.Verify(jwtx.TypeAccess, token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("missing secret", func(t *testing.T) {
		secrets := testSecrets()
		delete(secrets, jwtx.TypeVerifyEmail)
		_, err := jwtx.NewKeyring("authbase", secrets)
		require.ErrorIs(t, err, jwtx.ErrUnknownType)
	})

	t.Run("shared secret", func(t *testing.T) {
		secrets := testSecrets()
		secrets[jwtx.TypeRefresh] = secrets[jwtx.TypeAccess]
		_, err := jwtx.NewKeyring("authbase", secrets)
		require.ErrorIs(t, err, jwtx.ErrSharedSecret)
	})

	t.Run("unknown type", func(t *testing.T) {
		k, err := jwtx.NewKeyring("authbase", testSecrets())
		require.NoError(t, err)
		_, err = k.Verify("session", "x.y.z")
		require.ErrorIs(t, err, jwtx.ErrUnknownType)
		require.Nil(t, k.Verifier("session"))
	})
}
