package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already taken")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrOTPNotFound        = errors.New("otp secret not found")
	ErrOTPRejected        = errors.New("otp code rejected")
	ErrProviderMismatch   = errors.New("account uses a different login method")
)

// unauthenticated keeps the cause for the logs while callers only ever match
// on ErrUnauthenticated.
func unauthenticated(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthenticated, cause)
}
