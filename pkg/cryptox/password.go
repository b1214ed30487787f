package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost used when BCRYPT_SALT_ROUNDS is not set.
const DefaultCost = 15

var (
	// ErrPasswordMismatch is returned by Compare when the plaintext does not
	// produce the stored digest.
	ErrPasswordMismatch = errors.New("cryptox: password does not match")

	// ErrPasswordTooLong mirrors the bcrypt input limit of 72 bytes.
	ErrPasswordTooLong = errors.New("cryptox: password exceeds 72 bytes")
)

// Hasher hashes and compares passwords with bcrypt. The salt is generated per
// call and embedded in the digest, so only the cost is configuration.
type Hasher struct {
	Cost int
}

// NewHasher clamps cost into the range bcrypt accepts.
func NewHasher(cost int) *Hasher {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt digest for password.
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Compare checks password against digest. An empty digest (OAuth-only
// accounts) never matches.
func (h *Hasher) Compare(password, digest string) error {
	if digest == "" {
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("failed to compare password: %w", err)
	}
}
