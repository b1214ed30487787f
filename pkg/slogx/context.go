package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithUserID tags the request logger with the authenticated user and device.
// An empty device is omitted.
func WithUserID(ctx context.Context, userID, deviceID string) context.Context {
	attrs := []any{slog.String("user_id", userID)}
	if deviceID != "" {
		attrs = append(attrs, slog.String("device_id", deviceID))
	}
	return WithContext(ctx, FromContext(ctx).With(attrs...))
}
