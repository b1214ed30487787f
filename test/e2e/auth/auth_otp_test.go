package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAuthenticatorTwoFactor enrolls an authenticator app and signs in with it.
func TestAuthenticatorTwoFactor(t *testing.T) {
	client := startAuth(t)
	ctx := t.Context()

	alice, session := registerUser(t, client, "alice")

	challenge, msg, err := session.EnableTwoFactor(ctx, "google-authenticator")
	require.NoError(t, err)
	require.Equal(t, "Authentication QR code url generated", msg)
	require.NotEmpty(t, challenge.OTPID)
	require.Contains(t, challenge.OTPAuthURL, "otpauth://totp/")

	_, err = client.VerifyOTP(ctx, challenge.OTPID, authenticatorCode(t, challenge.OTPAuthURL))
	require.NoError(t, err, "Enrollment code should verify")

	me, err := session.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, me.IsTwoFactorAuthEnabled)

	// Password alone no longer gets tokens.
	res, err := client.Login(ctx, "alice@example.com", userPassword)
	require.NoError(t, err)
	require.Nil(t, res.Session)
	require.NotNil(t, res.Challenge)

	code := authenticatorCode(t, res.Challenge.OTPAuthURL)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = client.VerifyOTP(ctx, res.Challenge.OTPID, wrong)
	assertStatus(t, err, http.StatusUnauthorized, "Wrong code should be rejected")

	second, err := client.VerifyOTP(ctx, res.Challenge.OTPID, code)
	require.NoError(t, err)
	assertTokens(t, second.Tokens())

	msg, err = second.DisableTwoFactor(ctx)
	require.NoError(t, err)
	require.Equal(t, "Two factor authentication disabled", msg)

	res, err = client.Login(ctx, "alice@example.com", userPassword)
	require.NoError(t, err)
	require.NotNil(t, res.Session, "Login should issue tokens again")
}

// TestEmailTwoFactorResend verifies the resend flow for a code that is mailed.
func TestEmailTwoFactorResend(t *testing.T) {
	client := startAuth(t)
	ctx := t.Context()

	_, session := registerUser(t, client, "alice")

	challenge, msg, err := session.EnableTwoFactor(ctx, "email")
	require.NoError(t, err)
	require.Equal(t, "Authentication code sent via email", msg)
	require.Empty(t, challenge.OTPAuthURL)

	resent, err := client.ResendOTP(ctx, challenge.OTPID)
	require.NoError(t, err)
	require.NotEqual(t, challenge.OTPID, resent.OTPID, "Resend replaces the secret")

	_, err = client.ResendOTP(ctx, challenge.OTPID)
	assertStatus(t, err, http.StatusNotFound, "The replaced secret is gone")
}
