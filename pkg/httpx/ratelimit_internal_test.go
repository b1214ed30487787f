package httpx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewTokenBucketLimiter(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5})
	l.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		ok, _, err := l.Allow(context.Background(), key)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 3, l.Len())

	now = now.Add(bucketIdleTTL + time.Second)
	_, _, _ = l.Allow(context.Background(), "d")
	require.Equal(t, 1, l.Len(), "a, b and c were idle")
}
