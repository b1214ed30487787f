package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email string `json:"email"`
		Age   int    `json:"age"`
	}

	decode := func(payload string) (body, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		var b body
		err := httpx.DecodeJSON(httptest.NewRecorder(), req, &b)
		return b, err
	}

	status := func(t *testing.T, err error) int {
		t.Helper()
		var he *httpx.Error
		require.True(t, errors.As(err, &he))
		return he.Status
	}

	t.Run("valid", func(t *testing.T) {
		b, err := decode(`{"email":"a@b.co","age":3}`)
		require.NoError(t, err)
		require.Equal(t, "a@b.co", b.Email)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := decode(``)
		require.Equal(t, http.StatusBadRequest, status(t, err))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := decode(`{"email":`)
		require.Equal(t, http.StatusBadRequest, status(t, err))
	})

	t.Run("wrong type names field", func(t *testing.T) {
		_, err := decode(`{"age":"three"}`)
		var he *httpx.Error
		require.ErrorAs(t, err, &he)
		require.Contains(t, he.Errors, "age")
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := decode(`{"admin":true}`)
		var he *httpx.Error
		require.ErrorAs(t, err, &he)
		require.Equal(t, "unknown field", he.Errors["admin"])
	})

	t.Run("trailing data", func(t *testing.T) {
		_, err := decode(`{"email":"a@b.co"}{"email":"c@d.co"}`)
		require.Equal(t, http.StatusBadRequest, status(t, err))
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		var b body
		err := httpx.DecodeJSON(httptest.NewRecorder(), req, &b)
		require.Equal(t, http.StatusBadRequest, status(t, err))
	})
}

func TestValidator(t *testing.T) {
	var v httpx.Validator
	require.NoError(t, v.Err())

	v.Check(httpx.IsEmail("not-an-email"), "email", "Invalid email address")
	v.Check(false, "email", "second message is dropped")
	v.Check(httpx.IsStrongPassword("Passw0rd!"), "password", "too weak")

	var he *httpx.Error
	require.ErrorAs(t, v.Err(), &he)
	require.Equal(t, map[string]string{"email": "Invalid email address"}, he.Errors)
}

func TestIsStrongPassword(t *testing.T) {
	require.True(t, httpx.IsStrongPassword("Passw0rd!"))
	require.True(t, httpx.IsStrongPassword("password1"))
	require.False(t, httpx.IsStrongPassword("pass1"))
	require.False(t, httpx.IsStrongPassword("password"))
	require.False(t, httpx.IsStrongPassword("12345678"))
}

func TestIsEmail(t *testing.T) {
	require.True(t, httpx.IsEmail("alice@example.com"))
	require.False(t, httpx.IsEmail("Alice <alice@example.com>"))
	require.False(t, httpx.IsEmail("alice"))
	require.Equal(t, "alice@example.com", httpx.NormalizeEmail("  Alice@Example.COM "))
}
