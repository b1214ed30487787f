package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SecretBytes is the amount of randomness behind generated secrets and
// OAuth state values.
const SecretBytes = 32

// RandomString returns n random bytes encoded as unpadded base64url.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("cryptox: random length must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustRandomString panics where RandomString would fail. Startup only.
func MustRandomString(n int) string {
	s, err := RandomString(n)
	if err != nil {
		panic(err)
	}
	return s
}

// Fingerprint is the hex SHA-256 of a token. The store keeps fingerprints so
// a database dump does not hand out live refresh or reset tokens.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchFingerprint reports whether token hashes to fingerprint.
func MatchFingerprint(token, fingerprint string) bool {
	return Equal(Fingerprint(token), fingerprint)
}

// Equal compares two strings in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
