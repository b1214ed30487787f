package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// LoginResult holds a Session, or a Challenge when the account has a second
// factor. User is only returned alongside a Session.
type LoginResult struct {
	User      *User
	Session   *Session
	Challenge *OTPChallenge
	Message   string
}

// Register creates an account and signs it in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, *Session, error) {
	var data AuthData
	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", req, &data); err != nil {
		return nil, nil, err
	}
	return data.User, newSession(c, data.Tokens), nil
}

// Login signs in with email and password.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var data struct {
		AuthData
		OTPChallenge
	}
	msg, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", LoginRequest{Email: email, Password: password}, &data)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{User: data.User, Message: msg}
	if data.OTPID != "" {
		challenge := data.OTPChallenge
		res.Challenge = &challenge
		return res, nil
	}
	res.Session = newSession(c, data.Tokens)
	return res, nil
}

// VerifyOTP completes a second factor challenge.
func (c *SDKClient) VerifyOTP(ctx context.Context, otpID, code string) (*Session, error) {
	var data AuthData
	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/otp/verify", VerifyOTPRequest{OTPID: otpID, OTPCode: code}, &data); err != nil {
		return nil, err
	}
	return newSession(c, data.Tokens), nil
}

// ResendOTP replaces the challenge's secret and sends a new code.
func (c *SDKClient) ResendOTP(ctx context.Context, otpID string) (*OTPChallenge, error) {
	var data OTPChallenge
	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/otp/resend", ResendOTPRequest{OTPID: otpID}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ForgotPassword asks for a reset link to be mailed.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/auth/forgot-password", ForgotPasswordRequest{Email: email}, nil)
}

// ResetPassword sets a new password with the token from the reset link.
func (c *SDKClient) ResetPassword(ctx context.Context, token, password string) (string, error) {
	path := "/v1/auth/reset-password?token=" + url.QueryEscape(token)
	return c.doRequest(ctx, http.MethodPost, path, ResetPasswordRequest{Password: password}, nil)
}

// VerifyEmail confirms the address with the token from the verification link.
func (c *SDKClient) VerifyEmail(ctx context.Context, token string) (string, error) {
	path := "/v1/auth/verify-email?token=" + url.QueryEscape(token)
	return c.doRequest(ctx, http.MethodPost, path, nil, nil)
}
