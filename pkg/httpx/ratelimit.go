package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/authbase/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows RequestsPerWindow requests per Window. Burst only
// applies to the in-process token bucket.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Profiles shared by the routes. Each can be overridden through
// RATELIMIT_<NAME>_REQUESTS, RATELIMIT_<NAME>_WINDOW_SEC and
// RATELIMIT_<NAME>_BURST, e.g. RATELIMIT_STRICT_REQUESTS=1000 in tests.
var (
	// StrictLimit guards credential endpoints: 5 per minute.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit is for authenticated calls: 20 per minute.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit is for probes: 100 per minute.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit is for anonymous cheap reads: 1000 per minute.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

	// OTPLimit guards code verification and resend, which need no session:
	// 10 per 15 minutes.
	OTPLimit = RateLimitConfig{RequestsPerWindow: 10, Window: 15 * time.Minute, Burst: 10}
)

func init() {
	StrictLimit = StrictLimit.FromEnv("STRICT")
	ModerateLimit = ModerateLimit.FromEnv("MODERATE")
	LenientLimit = LenientLimit.FromEnv("LENIENT")
	PublicLimit = PublicLimit.FromEnv("PUBLIC")
	OTPLimit = OTPLimit.FromEnv("OTP")
}

// FromEnv returns c with any RATELIMIT_<name>_* overrides applied. Values
// that are not positive integers are ignored.
func (c RateLimitConfig) FromEnv(name string) RateLimitConfig {
	positive := func(field string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_" + field))
		return n, err == nil && n > 0
	}

	if n, ok := positive("REQUESTS"); ok {
		c.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		c.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		c.Burst = n
	}
	return c
}

// Limiter decides whether one more request for key is allowed. When it is
// not, retryAfter says how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// KeyExtractor picks the identity a request is limited by. An empty key
// means the request is not limited.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor uses the authenticated user id, if any.
func UserIDKeyExtractor(r *http.Request) string {
	id, _ := r.Context().Value(CtxKeyUserID).(string)
	return id
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor uses a top-level string field of the JSON body,
// lowercased. The body is put back for the handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]any
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		v, _ := fields[field].(string)
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// bucketIdleTTL is how long an unused bucket is kept in memory.
const bucketIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one token bucket per key in process memory.
// Buckets idle for bucketIdleTTL are evicted on a later call.
type TokenBucketLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

// NewTokenBucketLimiter refills RequestsPerWindow tokens evenly over Window
// and holds at most Burst.
func NewTokenBucketLimiter(config RateLimitConfig) *TokenBucketLimiter {
	burst := config.Burst
	if burst <= 0 {
		burst = config.RequestsPerWindow
	}
	return &TokenBucketLimiter{
		limit:   rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()

	l.mu.Lock()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	if b.limiter.AllowN(now, 1) {
		return true, 0, nil
	}

	// Ask when the next token lands without spending it.
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay, nil
}

// Len reports how many keys are tracked.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops idle buckets at most once per bucketIdleTTL. Callers hold mu.
func (l *TokenBucketLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(bucketIdleTTL)
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > bucketIdleTTL {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests the limiter refuses with 429 and a Retry-After
// header. A limiter error lets the request through: an unavailable limiter
// must not take login down with it.
func RateLimit(config RateLimitConfig, limiter Limiter, keys KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keys(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			ok, retryAfter, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("rate limit: limiter unavailable, allowing", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				log.Warn("rate limit exceeded", "key", key, "retry_after", retryAfter.String())
				writeRateLimited(w, r, config, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, config RateLimitConfig, delay time.Duration) {
	seconds := max(int((delay+time.Second-1)/time.Second), 1)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Window", config.Window.String())

	WriteError(w, r, TooManyRequests(rateLimitMessage))
}

const rateLimitMessage = "Too many requests, please try again later."

// RateLimitMiddleware limits by keys with an in-process token bucket.
func RateLimitMiddleware(config RateLimitConfig, keys KeyExtractor) Middleware {
	return RateLimit(config, NewTokenBucketLimiter(config), keys)
}

// RateLimitByIP limits by client address.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser limits by user id and address. It must run after the
// authentication middleware.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndJSONField limits by address plus a JSON body field, so one
// client guessing passwords for many accounts gets a bucket per account.
func RateLimitByIPAndJSONField(config RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)))
}
