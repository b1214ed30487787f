package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyDeviceID ctxKey = "device_id"
)

// WithUserID records the authenticated user (and device, if any) on ctx.
// Rate limiting by user reads it back.
func WithUserID(ctx context.Context, userID, deviceID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	if deviceID != "" {
		ctx = context.WithValue(ctx, CtxKeyDeviceID, deviceID)
	}
	return ctx
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyUserID).(string)
	return v
}

// DeviceIDFromContext returns the authenticated device id, or "".
func DeviceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyDeviceID).(string)
	return v
}
