// Package oauth implements the social login providers on top of
// golang.org/x/oauth2. Each provider turns an authorization code into an
// Identity by calling the provider's user info endpoint.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

var ErrMissingCode = errors.New("oauth: missing authorization code")

// Identity is what a provider tells us about the person signing in.
type Identity struct {
	Provider      string
	ExternalID    string
	Email         string
	Name          string
	GivenName     string
	PictureURL    string
	EmailVerified bool
}

// Provider is one social login strategy.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// Config is the per-provider application registration. Endpoint and
// UserInfoURL default to the provider's public endpoints when left empty.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// Enabled reports whether enough was configured to offer the provider.
func (c Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type decodeFunc func(body []byte) (Identity, error)

type provider struct {
	name        string
	cfg         *oauth2.Config
	userInfoURL string
	decode      decodeFunc
}

func newProvider(name string, c Config, scopes []string, decode decodeFunc) *provider {
	return &provider{
		name: name,
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     c.Endpoint,
			RedirectURL:  c.CallbackURL,
			Scopes:       scopes,
		},
		userInfoURL: c.UserInfoURL,
		decode:      decode,
	}
}

func (p *provider) Name() string { return p.name }

func (p *provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *provider) Exchange(ctx context.Context, code string) (Identity, error) {
	if code == "" {
		return Identity{}, ErrMissingCode
	}

	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("oauth: %s token exchange: %w", p.name, err)
	}

	resp, err := p.cfg.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return Identity{}, fmt.Errorf("oauth: %s user info: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("oauth: %s user info: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("oauth: %s user info returned %d: %s", p.name, resp.StatusCode, body)
	}

	id, err := p.decode(body)
	if err != nil {
		return Identity{}, fmt.Errorf("oauth: %s user info: %w", p.name, err)
	}
	id.Provider = p.name

	if id.ExternalID == "" {
		return Identity{}, fmt.Errorf("oauth: %s user info has no subject", p.name)
	}
	if id.Email == "" {
		return Identity{}, fmt.Errorf("oauth: %s user info has no email", p.name)
	}
	return id, nil
}

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
