package domain

import (
	"time"

	"github.com/aussiebroadwan/authbase/pkg/jwtx"
)

// TokenType mirrors the "type" claim.
type TokenType = jwtx.TokenType

const (
	TokenAccess        = jwtx.TypeAccess
	TokenRefresh       = jwtx.TypeRefresh
	TokenResetPassword = jwtx.TypeResetPassword
	TokenVerifyEmail   = jwtx.TypeVerifyEmail
)

// AuthTokens is what a successful login hands back, and what the tokens
// cookie holds.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Token is a persisted refresh, reset-password or verify-email token. The
// signed string itself is never stored, only its fingerprint. Access tokens
// are not persisted.
type Token struct {
	ID          string
	UserID      string
	Fingerprint string // hex SHA-256 of the signed token
	Type        TokenType
	DeviceID    string // refresh tokens only
	ExpiresAt   time.Time
	Blacklisted bool
	CreatedAt   time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenFilter selects token records. Empty fields match anything; UserID is
// always required by the stores.
type TokenFilter struct {
	UserID      string
	DeviceID    string
	Type        TokenType
	Blacklisted *bool
}
