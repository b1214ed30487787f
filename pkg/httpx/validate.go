package httpx

import (
	"net/mail"
	"strings"
	"unicode"
)

// Validator collects per-field problems with a request body.
type Validator struct {
	errs map[string]string
}

// Check records msg against field when ok is false. Only the first problem
// per field is kept.
func (v *Validator) Check(ok bool, field, msg string) {
	if ok {
		return
	}
	if v.errs == nil {
		v.errs = make(map[string]string)
	}
	if _, exists := v.errs[field]; !exists {
		v.errs[field] = msg
	}
}

// Valid reports whether no checks failed.
func (v *Validator) Valid() bool { return len(v.errs) == 0 }

// Err returns a 400 carrying the field errors, or nil.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return BadRequest("Bad Request", v.errs)
}

// IsEmail reports whether s is a bare email address.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// IsStrongPassword requires at least 8 characters including a letter and a
// digit.
func IsStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
