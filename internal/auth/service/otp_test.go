package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

// exactWindow accepts the current step only.
const exactWindow uint = 0

func TestOTPCodeWindows(t *testing.T) {
	svc := &OTPService{Issuer: "authbase-test"}
	secret, url, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "otpauth://totp/"))
	require.Contains(t, url, "algorithm=SHA512")

	at := time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)
	code, err := svc.CurrentCode(secret, at)
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.NoError(t, svc.VerifyCode(code, secret, at, exactWindow))
	require.NoError(t, svc.VerifyCode(" "+code+" ", secret, at, exactWindow))

	next := at.Add(30 * time.Second)
	require.ErrorIs(t, svc.VerifyCode(code, secret, next, exactWindow), ErrOTPRejected)
	require.NoError(t, svc.VerifyCode(code, secret, next, AuthenticatorWindow))

	later := at.Add(90 * time.Second)
	require.ErrorIs(t, svc.VerifyCode(code, secret, later, AuthenticatorWindow), ErrOTPRejected)

	require.ErrorIs(t, svc.VerifyCode("not-a-code", secret, at, AuthenticatorWindow), ErrOTPRejected)
}

func TestOTPURLForExistingSecret(t *testing.T) {
	svc := &OTPService{Issuer: "authbase-test"}
	secret, url, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	again, err := svc.URL(secret, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, url, again)

	_, err = svc.URL("!!!", "alice@example.com")
	require.Error(t, err)
}

func TestEnrollReplacesSecret(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u, _ := env.register(t, "alice")

	first, err := env.OTP.Enroll(ctx, u, domain.OTPMethodEmail)
	require.NoError(t, err)
	require.False(t, first.Verified)

	second, err := env.OTP.Enroll(ctx, u, domain.OTPMethodSMS)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	_, err = env.OTP.Get(ctx, first.ID)
	require.ErrorIs(t, err, ErrOTPNotFound)

	got, err := env.OTP.GetByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, got.ID)
	require.Equal(t, domain.OTPMethodSMS, got.Method)

	_, err = env.OTP.Enroll(ctx, u, domain.OTPMethod("carrier-pigeon"))
	require.Error(t, err)
}

func TestOTPVerify(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u, _ := env.register(t, "bob")

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.OTP.now = func() time.Time { return fixed }

	rec, err := env.OTP.Enroll(ctx, u, domain.OTPMethodAuthenticator)
	require.NoError(t, err)

	code, err := env.OTP.CurrentCode(rec.SecretKey, fixed)
	require.NoError(t, err)

	_, err = env.OTP.Verify(ctx, rec.ID, "000000")
	if code != "000000" {
		require.ErrorIs(t, err, ErrOTPRejected)
	}

	got, err := env.OTP.Verify(ctx, rec.ID, code)
	require.NoError(t, err)
	require.True(t, got.Verified)

	stored, err := env.OTP.GetByUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified)

	_, err = env.OTP.Verify(ctx, "missing", code)
	require.ErrorIs(t, err, ErrOTPNotFound)

	require.NoError(t, env.OTP.Remove(ctx, u.ID))
	require.NoError(t, env.OTP.Remove(ctx, u.ID))
}
