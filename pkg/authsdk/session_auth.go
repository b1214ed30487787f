package authsdk

import (
	"context"
	"net/http"
)

// Logout ends this device session on the server. The session's tokens are
// useless afterwards. Logout is authenticated with the refresh token.
func (s *Session) Logout(ctx context.Context) error {
	req, err := s.client.newRequest(ctx, http.MethodDelete, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Tokens().RefreshToken)

	_, err = s.client.do(req, nil)
	return err
}

// SendVerificationEmail mails a verification link to the signed-in user.
func (s *Session) SendVerificationEmail(ctx context.Context) (string, error) {
	return s.send(ctx, http.MethodPost, "/v1/auth/send-verification-email", nil, nil)
}

// EnableTwoFactor starts enrollment with method ("email", "sms" or
// "google-authenticator"). The returned challenge must be completed with
// SDKClient.VerifyOTP before the second factor is switched on. The challenge
// is nil when it was already enabled.
func (s *Session) EnableTwoFactor(ctx context.Context, method string) (*OTPChallenge, string, error) {
	var data OTPChallenge
	msg, err := s.send(ctx, http.MethodPost, "/v1/auth/otp/send", SendOTPRequest{Enabled: true, SendOTP: method}, &data)
	if err != nil {
		return nil, "", err
	}
	if data.OTPID == "" {
		return nil, msg, nil
	}
	return &data, msg, nil
}

// DisableTwoFactor switches the second factor off.
func (s *Session) DisableTwoFactor(ctx context.Context) (string, error) {
	return s.send(ctx, http.MethodPost, "/v1/auth/otp/send", SendOTPRequest{Enabled: false}, nil)
}
