package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/authbase/pkg/slogx"
)

// Error is an operational error: one whose status and message are safe to
// show to the client. Err carries the underlying cause for logging only.
type Error struct {
	Status  int
	Message string
	Errors  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns a copy of e that carries cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(status int, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Status: status, Message: msg}
}

func Unauthorized(msg string) *Error    { return newError(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error       { return newError(http.StatusForbidden, msg) }
func NotFound(msg string) *Error        { return newError(http.StatusNotFound, msg) }
func TooManyRequests(msg string) *Error { return newError(http.StatusTooManyRequests, msg) }

// BadRequest builds a 400. fields maps a request field to what is wrong with it.
func BadRequest(msg string, fields map[string]string) *Error {
	e := newError(http.StatusBadRequest, msg)
	if len(fields) > 0 {
		e.Errors = fields
	}
	return e
}

// Internal hides err behind a generic 500.
func Internal(err error) *Error {
	e := newError(http.StatusInternalServerError, "")
	e.Err = err
	return e
}

// HandlerFunc is an HTTP handler that reports failure by returning an error.
// Anything that is not an *Error is treated as an internal error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// WriteError formats err as the failure envelope. It is the only place
// errors turn into responses.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var he *Error
	if !errors.As(err, &he) {
		he = Internal(err)
	}

	switch {
	case he.Status >= http.StatusInternalServerError:
		log.Error("request failed", "status", he.Status, "err", err)
	case he.Err != nil:
		log.Debug("request rejected", "status", he.Status, "err", he.Err)
	}

	WriteJSON(w, he.Status, Envelope{
		Success: false,
		Code:    he.Status,
		Message: he.Message,
		Errors:  he.Errors,
	})
}
