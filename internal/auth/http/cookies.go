package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
)

const (
	tokensCookie     = "tokens"
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// CookieConfig controls the tokens cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool // set in production
}

// setTokensCookie stores the token pair as URL-encoded JSON in an httpOnly
// cookie, the format the cookie token extractors read back.
func (c CookieConfig) setTokensCookie(w http.ResponseWriter, tokens domain.AuthTokens) {
	raw, _ := json.Marshal(tokens)
	http.SetCookie(w, &http.Cookie{
		Name:     tokensCookie,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		Expires:  time.Now().Add(c.TTL),
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clearTokensCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokensCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// newOAuthState sets a short-lived cookie holding a random state value and
// returns it for the authorization URL.
func (c CookieConfig) newOAuthState(w http.ResponseWriter, provider string) (string, error) {
	state, err := cryptox.RandomString(cryptox.SecretBytes)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/v1/auth/" + provider,
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// checkOAuthState compares the state query parameter with the cookie and
// clears the cookie either way.
func (c CookieConfig) checkOAuthState(w http.ResponseWriter, r *http.Request, provider string) bool {
	cookie, err := r.Cookie(oauthStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Path:     "/v1/auth/" + provider,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
	})
	if err != nil || cookie.Value == "" {
		return false
	}
	return cryptox.Equal(r.URL.Query().Get("state"), cookie.Value)
}
