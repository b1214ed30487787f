package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/authbase/pkg/slogx"
)

// MsgPleaseAuthenticate is the message of every authentication failure.
const MsgPleaseAuthenticate = "Please authenticate"

// TokenExtractor pulls a raw token out of a request, or returns "".
type TokenExtractor func(*http.Request) string

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("Bearer "):])
}

// CookieJSONField reads field from a cookie whose value is a URL-encoded
// JSON object of strings.
func CookieJSONField(cookie, field string) TokenExtractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(cookie)
		if err != nil || c.Value == "" {
			return ""
		}
		raw, err := url.QueryUnescape(c.Value)
		if err != nil {
			return ""
		}
		var fields map[string]string
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return ""
		}
		return fields[field]
	}
}

// QueryParam reads a token from the query string.
func QueryParam(name string) TokenExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(name)
	}
}

// FirstToken tries each extractor in order.
func FirstToken(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) string {
		for _, ex := range extractors {
			if tok := ex(r); tok != "" {
				return tok
			}
		}
		return ""
	}
}

// AuthenticateFunc checks a raw token and returns a context carrying whatever
// the downstream handlers need to know about the caller.
type AuthenticateFunc func(ctx context.Context, raw string) (context.Context, error)

// AuthnMiddleware rejects requests without a token that authn accepts.
// authn signals a rejected token with a 401 *Error, and every rejection gets
// the same response so callers learn nothing about why. Any other error is
// written as is, so a failing store is a 500 rather than a logout.
func AuthnMiddleware(extract TokenExtractor, authn AuthenticateFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := extract(r)
			if raw == "" {
				writeBearerError(w, r, "missing token")
				return
			}

			ctx, err := authn(ctx, raw)
			if err != nil {
				var he *Error
				if errors.As(err, &he) && he.Status == http.StatusUnauthorized {
					slogx.FromContext(r.Context()).Warn("authentication failed", "err", err)
					writeBearerError(w, r, "token verification failed")
					return
				}
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant challenge header plus the failure envelope.
func writeBearerError(w http.ResponseWriter, r *http.Request, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, r, Unauthorized(MsgPleaseAuthenticate))
}
