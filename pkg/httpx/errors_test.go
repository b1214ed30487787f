package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env httpx.Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHandlerFuncErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unauthorized", httpx.Unauthorized("Please authenticate"), http.StatusUnauthorized, "Please authenticate"},
		{"forbidden", httpx.Forbidden(""), http.StatusForbidden, "Forbidden"},
		{"not found", httpx.NotFound("User not found"), http.StatusNotFound, "User not found"},
		{"wrapped operational", errors.Join(errors.New("ctx"), httpx.NotFound("gone")), http.StatusNotFound, "gone"},
		{"plain error", errors.New("db exploded"), http.StatusInternalServerError, "Internal Server Error"},
		{"internal hides cause", httpx.Internal(errors.New("secret detail")), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := httpx.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error { return tc.err })
			rec, env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, tc.status, rec.Code)
			require.False(t, env.Success)
			require.Equal(t, tc.status, env.Code)
			require.Equal(t, tc.message, env.Message)
			require.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestBadRequestFieldErrors(t *testing.T) {
	h := httpx.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return httpx.BadRequest("Bad Request", map[string]string{"email": "Invalid email address"})
	})
	rec, env := serve(t, h, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid email address", env.Errors["email"])
}

func TestErrorWrapKeepsOriginal(t *testing.T) {
	base := httpx.Unauthorized("Please authenticate")
	cause := errors.New("token expired")

	wrapped := base.Wrap(cause)
	require.ErrorIs(t, wrapped, cause)
	require.Nil(t, base.Err)
	require.Equal(t, base.Status, wrapped.Status)
}

func TestRespond(t *testing.T) {
	h := httpx.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		httpx.Respond(w, http.StatusCreated, "", map[string]string{"id": "1"})
		return nil
	})
	rec, env := serve(t, h, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)
	require.Equal(t, "Created", env.Message)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, map[string]any{"id": "1"}, env.Data)
}
