package jwtx

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrUnknownType  = errors.New("jwtx: unknown token type")
	ErrSharedSecret = errors.New("jwtx: token types must not share a secret")
)

// Keyring holds one signer and one verifier per token type. A secret leaked
// for one type (say, reset password links) cannot mint tokens of another.
type Keyring struct {
	issuer    string
	signers   map[TokenType]*HMACSigner
	verifiers map[TokenType]*HMACVerifier
}

// NewKeyring builds a keyring from per-type secrets. Every known type must be
// present and no two types may use the same secret.
func NewKeyring(issuer string, secrets map[TokenType][]byte) (*Keyring, error) {
	types := []TokenType{TypeAccess, TypeRefresh, TypeResetPassword, TypeVerifyEmail}

	k := &Keyring{
		issuer:    issuer,
		signers:   make(map[TokenType]*HMACSigner, len(types)),
		verifiers: make(map[TokenType]*HMACVerifier, len(types)),
	}

	for i, t := range types {
		secret, ok := secrets[t]
		if !ok {
			return nil, fmt.Errorf("jwtx: missing secret for %q: %w", t, ErrUnknownType)
		}
		for _, other := range types[:i] {
			if bytes.Equal(secret, secrets[other]) {
				return nil, fmt.Errorf("jwtx: %q and %q: %w", other, t, ErrSharedSecret)
			}
		}

		signer, err := NewHMACSigner(secret)
		if err != nil {
			return nil, fmt.Errorf("jwtx: secret for %q: %w", t, err)
		}
		k.signers[t] = signer
		k.verifiers[t] = NewHMACVerifier(secret, issuer, t)
	}

	return k, nil
}

// Issuer is the "iss" value stamped on and required from every token.
func (k *Keyring) Issuer() string { return k.issuer }

// Sign signs c with the secret belonging to c.Type.
func (k *Keyring) Sign(c Claims) (string, error) {
	s, ok := k.signers[c.Type]
	if !ok {
		return "", ErrUnknownType
	}
	return s.Sign(c)
}

// Verify checks token as a token of type t.
func (k *Keyring) Verify(t TokenType, token string) (Claims, error) {
	v, ok := k.verifiers[t]
	if !ok {
		return Claims{}, ErrUnknownType
	}
	return v.Verify(token)
}

// Verifier returns the verifier for t, or nil for an unknown type.
func (k *Keyring) Verifier(t TokenType) Verifier {
	v, ok := k.verifiers[t]
	if !ok {
		return nil
	}
	return v
}
