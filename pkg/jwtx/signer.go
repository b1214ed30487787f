package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret we accept. HS384 wants at least
// 48 bytes of key material to be worth the name, but operators tend to paste
// shorter strings, so we only refuse the obviously weak ones.
const MinSecretLength = 16

// ErrWeakSecret is returned when a signing secret is shorter than MinSecretLength.
var ErrWeakSecret = errors.New("jwtx: signing secret too short")

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HMACSigner signs tokens with HS384 and a single shared secret.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates an HS384 signer.
func NewHMACSigner(secret []byte) (*HMACSigner, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HMACSigner{secret: secret}, nil
}

func (s *HMACSigner) Alg() string { return jwt.SigningMethodHS384.Alg() }

// Sign serialises and signs the claims.
func (s *HMACSigner) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}
