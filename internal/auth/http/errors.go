package http

import (
	"errors"

	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
)

// Response messages shared by several handlers.
const (
	msgForbidden        = "Access Denied - You don't have permission"
	msgWrongCredentials = "Wrong email or password"
	msgProviderMismatch = "You have previously signed up with a different login method"
	msgOTPRejected      = "Failed to verify otp token"
)

// serviceError turns a service sentinel into the operational error the
// client sees. Anything unrecognised passes through and ends up as a 500.
func serviceError(err error) error {
	var he *httpx.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return err
	case errors.Is(err, service.ErrInvalidCredentials):
		return httpx.Unauthorized(msgWrongCredentials).Wrap(err)
	case errors.Is(err, service.ErrUnauthenticated):
		return httpx.Unauthorized(httpx.MsgPleaseAuthenticate).Wrap(err)
	case errors.Is(err, service.ErrForbidden):
		return httpx.Forbidden(msgForbidden).Wrap(err)
	case errors.Is(err, service.ErrUserNotFound):
		return httpx.NotFound("User not found").Wrap(err)
	case errors.Is(err, service.ErrEmailTaken):
		return httpx.BadRequest("Email already taken", nil).Wrap(err)
	case errors.Is(err, service.ErrUsernameTaken):
		return httpx.BadRequest("Username already taken", nil).Wrap(err)
	case errors.Is(err, service.ErrOTPNotFound):
		return httpx.NotFound("").Wrap(err)
	case errors.Is(err, service.ErrOTPRejected):
		return httpx.Unauthorized(msgOTPRejected).Wrap(err)
	case errors.Is(err, service.ErrProviderMismatch):
		return httpx.Unauthorized(msgProviderMismatch).Wrap(err)
	}
	return err
}

// withMessage maps not-found to a handler specific 404 message, as user
// update and delete report "User update failed" rather than "User not found".
func withMessage(err error, notFound string) error {
	if errors.Is(err, service.ErrUserNotFound) {
		return httpx.NotFound(notFound).Wrap(err)
	}
	return serviceError(err)
}
