package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/authbase/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &line))
	return line
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))
}

func TestNew(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "authbase",
		Version: "v1.2.3",
		Env:     "test",
		Level:   "warn",
		Output:  &buf,
	})

	logger.Info("dropped")
	require.Zero(t, buf.Len(), "info is below warn")

	logger.Warn("login failed", "email", "alice@example.com", "password", "hunter22", "Authorization", "Bearer x")
	line := decodeLine(t, buf.Bytes())
	require.Equal(t, "authbase", line["service"])
	require.Equal(t, "v1.2.3", line["version"])
	require.Equal(t, "alice@example.com", line["email"])
	require.Equal(t, slogx.Redacted, line["password"])
	require.Equal(t, slogx.Redacted, line["Authorization"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("verbose"))
}

func TestWithUserID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := slogx.WithContext(context.Background(), base)
	ctx = slogx.WithUserID(ctx, "user-1", "device-1")
	slogx.FromContext(ctx).Info("hello")

	line := decodeLine(t, buf.Bytes())
	require.Equal(t, "user-1", line["user_id"])
	require.Equal(t, "device-1", line["device_id"])
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	status := http.StatusTeapot
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slogx.FromContext(r.Context()) == slog.Default() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("short and stout"))
	}))

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/verify-email?token=secret-link", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)
		require.NotEmpty(t, rec.Header().Get(slogx.RequestIDHeader))

		line := decodeLine(t, buf.Bytes())
		require.Equal(t, "http_request", line["msg"])
		require.Equal(t, "WARN", line["level"])
		require.Equal(t, float64(http.StatusTeapot), line["status"])
		require.Equal(t, float64(len("short and stout")), line["bytes"])
		require.Equal(t, "/v1/auth/verify-email", line["path"])
		require.NotContains(t, buf.String(), "secret-link")
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		buf.Reset()
		status = http.StatusOK
		req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
		req.Header.Set(slogx.RequestIDHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, "abc", rec.Header().Get(slogx.RequestIDHeader))
		line := decodeLine(t, buf.Bytes())
		require.Equal(t, "abc", line["req_id"])
		require.Equal(t, "INFO", line["level"])
	})
}
