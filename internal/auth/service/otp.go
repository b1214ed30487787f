package service

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/idx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	otpPeriod     = 30
	otpSecretSize = 32

	// AuthenticatorWindow tolerates one step of clock drift on the user's
	// device. Verify applies it to every method, delivered codes included.
	AuthenticatorWindow uint = 1
)

// OTPService owns TOTP secrets: SHA-512, six digits, 30 second steps. A user
// holds at most one secret; enrolling again replaces it.
type OTPService struct {
	Store  store.Store
	Issuer string // shown in authenticator apps

	now func() time.Time
}

func (s *OTPService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func validateOpts(window uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    otpPeriod,
		Skew:      window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA512,
	}
}

func (s *OTPService) generateOpts(email string) totp.GenerateOpts {
	return totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: email,
		Period:      otpPeriod,
		SecretSize:  otpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA512,
	}
}

// GenerateSecret returns a new base32 secret and its otpauth:// URL.
func (s *OTPService) GenerateSecret(email string) (secret, url string, err error) {
	key, err := totp.Generate(s.generateOpts(email))
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// URL renders the otpauth:// URL for an existing secret.
func (s *OTPService) URL(secret, email string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}

	opts := s.generateOpts(email)
	opts.Secret = raw
	key, err := totp.Generate(opts)
	if err != nil {
		return "", fmt.Errorf("build otpauth url: %w", err)
	}
	return key.URL(), nil
}

// CurrentCode is the code for secret at the given instant.
func (s *OTPService) CurrentCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, validateOpts(0))
}

// VerifyCode accepts code if it matches any step within ±window of at.
func (s *OTPService) VerifyCode(code, secret string, at time.Time, window uint) error {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at, validateOpts(window))
	if err != nil || !ok {
		return ErrOTPRejected
	}
	return nil
}

// Enroll replaces the user's secret with a fresh unverified one.
func (s *OTPService) Enroll(ctx context.Context, user domain.User, method domain.OTPMethod) (domain.OTPSecret, error) {
	if !method.Valid() {
		return domain.OTPSecret{}, fmt.Errorf("enroll otp: unknown method %q", method)
	}

	secret, _, err := s.GenerateSecret(user.Email)
	if err != nil {
		return domain.OTPSecret{}, err
	}

	now := s.clock().UTC()
	rec := domain.OTPSecret{
		ID:        idx.NewAt(now).String(),
		UserID:    user.ID,
		SecretKey: secret,
		Method:    method,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OTPs().DeleteOTPByUser(ctx, user.ID); err != nil {
			return err
		}
		return tx.OTPs().CreateOTP(ctx, rec)
	})
	if err != nil {
		return domain.OTPSecret{}, fmt.Errorf("enroll otp: %w", err)
	}
	return rec, nil
}

// Get returns a secret by id.
func (s *OTPService) Get(ctx context.Context, id string) (domain.OTPSecret, error) {
	rec, err := s.Store.OTPs().GetOTPByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OTPSecret{}, ErrOTPNotFound
	}
	return rec, err
}

// GetByUser returns the user's secret.
func (s *OTPService) GetByUser(ctx context.Context, userID string) (domain.OTPSecret, error) {
	rec, err := s.Store.OTPs().GetOTPByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OTPSecret{}, ErrOTPNotFound
	}
	return rec, err
}

// Verify checks code against the secret otpID with AuthenticatorWindow and
// marks the secret verified on success.
func (s *OTPService) Verify(ctx context.Context, otpID, code string) (domain.OTPSecret, error) {
	rec, err := s.Get(ctx, otpID)
	if err != nil {
		return domain.OTPSecret{}, err
	}

	if err := s.VerifyCode(code, rec.SecretKey, s.clock(), AuthenticatorWindow); err != nil {
		return domain.OTPSecret{}, err
	}

	if !rec.Verified {
		if err := s.Store.OTPs().MarkOTPVerified(ctx, rec.ID); err != nil {
			return domain.OTPSecret{}, fmt.Errorf("mark otp verified: %w", err)
		}
		rec.Verified = true
	}
	return rec, nil
}

// Remove drops the user's secret, if any.
func (s *OTPService) Remove(ctx context.Context, userID string) error {
	return s.Store.OTPs().DeleteOTPByUser(ctx, userID)
}
