package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per key in fixed windows, shared between
// service instances.
type WindowCounter interface {
	// Hit records one request for key and returns the count in the current
	// window together with the time left until it resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// hitScript increments the key and starts the window on the first hit, or
// when the key somehow lost its expiry. It returns {count, pttl}.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisWindowCounter is a fixed-window counter in Redis. INCR and EXPIRE
// run in one script so a crash cannot leave a counter without expiry.
type RedisWindowCounter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisWindowCounter creates a counter whose keys start with prefix.
func NewRedisWindowCounter(client redis.UniversalClient, prefix string) *RedisWindowCounter {
	return &RedisWindowCounter{client: client, prefix: prefix}
}

func (c *RedisWindowCounter) key(k string) string {
	return c.prefix + k
}

func (c *RedisWindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := hitScript.Run(ctx, c.client, []string{c.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: hit %q: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: hit %q: unexpected reply %v", key, res)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

// Reset clears the counter for key.
func (c *RedisWindowCounter) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset %q: %w", key, err)
	}
	return nil
}

// WindowLimiter allows RequestsPerWindow hits per key per window of a
// WindowCounter.
type WindowLimiter struct {
	counter WindowCounter
	config  RateLimitConfig
}

func NewWindowLimiter(counter WindowCounter, config RateLimitConfig) *WindowLimiter {
	return &WindowLimiter{counter: counter, config: config}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	count, ttl, err := l.counter.Hit(ctx, key, l.config.Window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(l.config.RequestsPerWindow) {
		return false, ttl, nil
	}
	return true, 0, nil
}

// RateLimitWithCounter limits by keys with a shared WindowCounter. When the
// counter is unavailable the request is let through and the failure logged.
func RateLimitWithCounter(config RateLimitConfig, counter WindowCounter, keys KeyExtractor) Middleware {
	return RateLimit(config, NewWindowLimiter(counter, config), keys)
}
