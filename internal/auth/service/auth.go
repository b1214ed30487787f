package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/notify"
	"github.com/aussiebroadwan/authbase/internal/auth/oauth"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/slogx"
)

// EventRecorder counts authentication outcomes. *metricsx.Metrics
// satisfies it.
type EventRecorder interface {
	AuthEvent(event string, err error)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, error) {}

// Auth event names.
const (
	EventRegister  = "register"
	EventLogin     = "login"
	EventLogout    = "logout"
	EventRefresh   = "refresh"
	EventOTPVerify = "otp_verify"
	EventOAuth     = "oauth_login"
)

// AuthService runs the account flows: registration, login with optional
// second factor, logout and refresh, password reset, email verification and
// social login.
type AuthService struct {
	Store  store.Store
	Users  *UserService
	Tokens *TokenService
	OTP    *OTPService
	Hasher *cryptox.Hasher

	Mailer notify.Mailer
	SMS    notify.SMSSender

	// ClientURL is the front-end base used for links in emails.
	ClientURL string

	Events EventRecorder
}

func (s *AuthService) record(event string, err error) {
	if s.Events == nil {
		nopRecorder{}.AuthEvent(event, err)
		return
	}
	s.Events.AuthEvent(event, err)
}

// LoginResult carries either tokens or, for accounts with a second factor,
// the challenge to complete through VerifyOTP.
type LoginResult struct {
	User      domain.User
	Tokens    domain.AuthTokens
	Challenge *domain.OTPChallenge
}

// Register creates the account and signs it in on a new device.
func (s *AuthService) Register(ctx context.Context, in NewUser) (u domain.User, tokens domain.AuthTokens, err error) {
	defer func() { s.record(EventRegister, err) }()

	u, err = s.Users.CreateUser(ctx, in)
	if err != nil {
		return domain.User{}, domain.AuthTokens{}, err
	}

	tokens, err = s.Tokens.IssueAuthTokens(ctx, u.ID)
	if err != nil {
		return domain.User{}, domain.AuthTokens{}, err
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID))
	return u, tokens, nil
}

// VerifyCredentials checks email and password. Unknown email, wrong password
// and inactive accounts all give ErrInvalidCredentials.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := s.Hasher.Compare(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !u.IsActive {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login verifies credentials. With two-factor enabled no tokens are issued;
// the user's stored secret is used to send a code (or, for authenticator
// apps, to hand back the otpauth URL) instead.
func (s *AuthService) Login(ctx context.Context, email, password string) (res LoginResult, err error) {
	defer func() { s.record(EventLogin, err) }()

	u, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}

	if u.IsTwoFactorAuthEnabled {
		secret, err := s.OTP.GetByUser(ctx, u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		challenge, err := s.sendOTP(ctx, u, secret)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{User: u, Challenge: &challenge}, nil
	}

	tokens, err := s.Tokens.IssueAuthTokens(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u, Tokens: tokens}, nil
}

// Logout ends one device session. The device's access tokens stop working
// with it.
func (s *AuthService) Logout(ctx context.Context, userID, deviceID string) (err error) {
	defer func() { s.record(EventLogout, err) }()
	return s.Tokens.Revoke(ctx, userID, domain.TokenRefresh, deviceID)
}

// Refresh rotates a device session: the presented refresh record goes and a
// new pair on a new device id replaces it.
func (s *AuthService) Refresh(ctx context.Context, p Principal) (tokens domain.AuthTokens, err error) {
	defer func() { s.record(EventRefresh, err) }()

	if err = s.Tokens.Revoke(ctx, p.User.ID, domain.TokenRefresh, p.DeviceID); err != nil {
		return domain.AuthTokens{}, err
	}
	return s.Tokens.IssueAuthTokens(ctx, p.User.ID)
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.ClientURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// ForgotPassword replaces any outstanding reset token and mails a new link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if err := s.Tokens.Revoke(ctx, u.ID, domain.TokenResetPassword, ""); err != nil {
		return domain.User{}, err
	}
	token, err := s.Tokens.IssueResetPasswordToken(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}

	text := notify.ResetPasswordText(u.Name, s.link("/reset-password", token))
	if err := s.Mailer.SendEmail(ctx, u.Email, notify.SubjectResetPassword, text); err != nil {
		return domain.User{}, fmt.Errorf("send reset password email: %w", err)
	}
	return u, nil
}

// ResetPassword sets a new password and signs the user out everywhere by
// dropping all of their stored tokens.
func (s *AuthService) ResetPassword(ctx context.Context, p Principal, password string) error {
	if _, err := s.Users.UpdateUser(ctx, p.User.ID, UserChanges{Password: &password}); err != nil {
		return err
	}
	if _, err := s.Tokens.RevokeAll(ctx, p.User.ID, ""); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset", slog.String("user_id", p.User.ID))

	if err := s.Mailer.SendEmail(ctx, p.User.Email, notify.SubjectResetPasswordConfirm, "Password changed successful"); err != nil {
		return fmt.Errorf("send reset confirmation: %w", err)
	}
	return nil
}

// SendVerificationEmail mails a fresh verification link unless the address
// is already verified, in which case it reports false and sends nothing.
func (s *AuthService) SendVerificationEmail(ctx context.Context, u domain.User) (sent bool, err error) {
	if u.IsEmailVerified {
		return false, nil
	}

	if err := s.Tokens.Revoke(ctx, u.ID, domain.TokenVerifyEmail, ""); err != nil {
		return false, err
	}
	token, err := s.Tokens.IssueVerifyEmailToken(ctx, u.ID)
	if err != nil {
		return false, err
	}

	text := notify.VerifyEmailText(u.Name, s.link("/verify-email", token))
	if err := s.Mailer.SendEmail(ctx, u.Email, notify.SubjectVerifyEmail, text); err != nil {
		return false, fmt.Errorf("send verification email: %w", err)
	}
	return true, nil
}

// VerifyEmail marks the address verified and drops the verify tokens.
func (s *AuthService) VerifyEmail(ctx context.Context, p Principal) error {
	verified := true
	if _, err := s.Store.Users().UpdateUser(ctx, p.User.ID, domain.UserUpdate{IsEmailVerified: &verified}); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if _, err := s.Tokens.RevokeAll(ctx, p.User.ID, domain.TokenVerifyEmail); err != nil {
		return err
	}

	if err := s.Mailer.SendEmail(ctx, p.User.Email, notify.SubjectVerifyEmailConfirm, "Email verification successful"); err != nil {
		return fmt.Errorf("send verification confirmation: %w", err)
	}
	return nil
}

// TwoFactorOutcome tells the caller which response SetTwoFactor produced.
type TwoFactorOutcome int

const (
	TwoFactorAlreadyEnabled TwoFactorOutcome = iota
	TwoFactorAlreadyDisabled
	TwoFactorDisabled
	TwoFactorChallengeSent
)

// SetTwoFactor turns the second factor on or off for u. Enabling enrolls a
// new secret for method and returns its challenge; the flag itself is only
// set once VerifyOTP succeeds.
func (s *AuthService) SetTwoFactor(ctx context.Context, u domain.User, enabled bool, method domain.OTPMethod) (TwoFactorOutcome, *domain.OTPChallenge, error) {
	switch {
	case enabled && u.IsTwoFactorAuthEnabled:
		return TwoFactorAlreadyEnabled, nil, nil
	case !enabled && !u.IsTwoFactorAuthEnabled:
		return TwoFactorAlreadyDisabled, nil, nil
	}

	if enabled {
		secret, err := s.OTP.Enroll(ctx, u, method)
		if err != nil {
			return 0, nil, err
		}
		challenge, err := s.sendOTP(ctx, u, secret)
		if err != nil {
			return 0, nil, err
		}
		return TwoFactorChallengeSent, &challenge, nil
	}

	off := false
	if _, err := s.Store.Users().UpdateUser(ctx, u.ID, domain.UserUpdate{IsTwoFactorAuthEnabled: &off}); err != nil {
		return 0, nil, fmt.Errorf("disable two factor: %w", err)
	}
	if err := s.OTP.Remove(ctx, u.ID); err != nil {
		return 0, nil, err
	}
	return TwoFactorDisabled, nil, nil
}

// VerifyOTP completes a challenge: the code is checked, two-factor is
// switched on for the owner and a new device session is issued.
func (s *AuthService) VerifyOTP(ctx context.Context, otpID, code string) (tokens domain.AuthTokens, err error) {
	defer func() { s.record(EventOTPVerify, err) }()

	secret, err := s.OTP.Verify(ctx, otpID, code)
	if err != nil {
		return domain.AuthTokens{}, err
	}

	on := true
	if _, err = s.Store.Users().UpdateUser(ctx, secret.UserID, domain.UserUpdate{IsTwoFactorAuthEnabled: &on}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthTokens{}, ErrUserNotFound
		}
		return domain.AuthTokens{}, fmt.Errorf("enable two factor: %w", err)
	}

	return s.Tokens.IssueAuthTokens(ctx, secret.UserID)
}

// ResendOTP swaps the secret behind otpID for a new one with the same
// delivery method and sends it again.
func (s *AuthService) ResendOTP(ctx context.Context, otpID string) (domain.OTPChallenge, error) {
	old, err := s.OTP.Get(ctx, otpID)
	if err != nil {
		return domain.OTPChallenge{}, err
	}
	u, err := s.Users.GetUser(ctx, old.UserID)
	if err != nil {
		return domain.OTPChallenge{}, err
	}

	secret, err := s.OTP.Enroll(ctx, u, old.Method)
	if err != nil {
		return domain.OTPChallenge{}, err
	}
	return s.sendOTP(ctx, u, secret)
}

// sendOTP delivers the current code for email and sms secrets. Authenticator
// secrets are not sent anywhere; the caller gets the otpauth URL to render
// as a QR code.
func (s *AuthService) sendOTP(ctx context.Context, u domain.User, secret domain.OTPSecret) (domain.OTPChallenge, error) {
	challenge := domain.OTPChallenge{OTPID: secret.ID, Method: secret.Method}

	switch secret.Method {
	case domain.OTPMethodEmail, domain.OTPMethodSMS:
		code, err := s.OTP.CurrentCode(secret.SecretKey, s.OTP.clock())
		if err != nil {
			return domain.OTPChallenge{}, fmt.Errorf("generate otp code: %w", err)
		}
		if secret.Method == domain.OTPMethodEmail {
			err = s.Mailer.SendEmail(ctx, u.Email, notify.SubjectOTP, notify.OTPEmailText(u.Name, code))
		} else {
			err = s.SMS.SendSMS(ctx, u.PhoneNumber, notify.OTPSMSText(code))
		}
		if err != nil {
			return domain.OTPChallenge{}, fmt.Errorf("deliver otp via %s: %w", secret.Method, err)
		}

	case domain.OTPMethodAuthenticator:
		otpURL, err := s.OTP.URL(secret.SecretKey, u.Email)
		if err != nil {
			return domain.OTPChallenge{}, err
		}
		challenge.OTPAuthURL = otpURL

	default:
		return domain.OTPChallenge{}, fmt.Errorf("unknown otp method %q", secret.Method)
	}

	return challenge, nil
}

// OAuthLogin signs in a social identity, creating the account on first
// sight. An existing account must be bound to the same provider and the same
// provider-side user id; anything else is refused.
func (s *AuthService) OAuthLogin(ctx context.Context, id oauth.Identity) (tokens domain.AuthTokens, err error) {
	defer func() { s.record(EventOAuth, err) }()

	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(id.Email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		u, err = s.createOAuthUser(ctx, id)
		if err != nil {
			return domain.AuthTokens{}, err
		}
	case err != nil:
		return domain.AuthTokens{}, err
	case u.OAuthProvider != id.Provider, u.OAuthID != id.ExternalID:
		return domain.AuthTokens{}, ErrProviderMismatch
	case !u.IsActive:
		return domain.AuthTokens{}, ErrInvalidCredentials
	}

	return s.Tokens.IssueAuthTokens(ctx, u.ID)
}

func (s *AuthService) createOAuthUser(ctx context.Context, id oauth.Identity) (domain.User, error) {
	base := id.GivenName
	if base == "" {
		base = id.Name
	}
	if base == "" {
		base, _, _ = strings.Cut(id.Email, "@")
	}

	username, err := s.Users.UniqueUsername(ctx, base)
	if err != nil {
		return domain.User{}, err
	}

	name := id.Name
	if name == "" {
		name = username
	}

	u, err := s.Users.CreateUser(ctx, NewUser{
		Name:            name,
		Username:        username,
		Email:           id.Email,
		ProfilePicture:  id.PictureURL,
		IsEmailVerified: id.EmailVerified,
		OAuthProvider:   id.Provider,
		OAuthID:         id.ExternalID,
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created from oauth identity",
		slog.String("user_id", u.ID),
		slog.String("provider", id.Provider),
	)
	return u, nil
}
