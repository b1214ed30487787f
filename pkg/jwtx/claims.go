package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType is carried in the "type" claim. Every type is signed with its own
// secret, and verifiers reject a token whose type is not the one they expect.
type TokenType string

const (
	TypeAccess        TokenType = "access"
	TypeRefresh       TokenType = "refresh"
	TypeResetPassword TokenType = "resetPassword"
	TypeVerifyEmail   TokenType = "verifyEmail"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	switch t {
	case TypeAccess, TypeRefresh, TypeResetPassword, TypeVerifyEmail:
		return true
	}
	return false
}

// Claims are the claims every token carries. For access and refresh tokens
// the "jti" is the device id of the login session.
type Claims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"type"`
}

// NewClaims builds minimally-correct claims for a token of the given type.
func NewClaims(
	subject string,
	tokenType TokenType,
	deviceID string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        deviceID,
		},
		Type: tokenType,
	}
}

// DeviceID returns the device the token was issued to, if any.
func (c *Claims) DeviceID() string { return c.ID }

// Check validates the claims at instant at. The token must carry an expiry,
// be current and of the expected type, name a subject, and come from issuer
// when one is set.
func (c *Claims) Check(issuer string, expected TokenType, at time.Time) error {
	switch {
	case c.ExpiresAt == nil:
		return ErrMalformed
	case !at.Before(c.ExpiresAt.Time):
		return ErrExpired
	case c.NotBefore != nil && at.Before(c.NotBefore.Time):
		return ErrNotYetValid
	case issuer != "" && c.Issuer != issuer:
		return ErrIssuer
	case c.Type != expected:
		return ErrTypeMismatch
	case c.Subject == "":
		return ErrMalformed
	}
	return nil
}
