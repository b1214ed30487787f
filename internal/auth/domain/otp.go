package domain

import (
	"fmt"
	"time"
)

// OTPMethod is how a second-factor code reaches the user.
type OTPMethod string

const (
	OTPMethodEmail         OTPMethod = "email"
	OTPMethodSMS           OTPMethod = "sms"
	OTPMethodAuthenticator OTPMethod = "google-authenticator"
)

// Valid reports whether m is a known delivery method.
func (m OTPMethod) Valid() bool {
	switch m {
	case OTPMethodEmail, OTPMethodSMS, OTPMethodAuthenticator:
		return true
	}
	return false
}

// ParseOTPMethod validates a method name.
func ParseOTPMethod(s string) (OTPMethod, error) {
	m := OTPMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown otp method %q", s)
	}
	return m, nil
}

// OTPSecret is a user's TOTP secret. A user has at most one.
type OTPSecret struct {
	ID        string
	UserID    string
	SecretKey string // base32
	Verified  bool
	Method    OTPMethod
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OTPChallenge is returned instead of tokens when a second factor is needed.
type OTPChallenge struct {
	OTPID      string `json:"otp_id"`
	OTPAuthURL string `json:"otpauth_url,omitempty"`

	Method OTPMethod `json:"-"`
}
