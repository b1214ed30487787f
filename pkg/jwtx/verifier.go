package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrTypeMismatch = errors.New("jwtx: token type mismatch")
)

// HMACVerifier validates HS384 tokens for exactly one token type.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	expected TokenType
}

// NewHMACVerifier creates a verifier bound to a secret, issuer and type.
func NewHMACVerifier(secret []byte, issuer string, expected TokenType) *HMACVerifier {
	return &HMACVerifier{secret: secret, issuer: issuer, expected: expected}
}

// Verify checks the signature first and then the claims. Tokens without an
// exp claim are rejected.
func (v *HMACVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS384.Alg()}),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.Check(v.issuer, v.expected, time.Now()); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
