package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is one logged in device. Requests made through it rotate the token
// pair shortly before the access token expires.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, tokens Tokens) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		expiresAt:    accessExpiry(tokens.AccessToken, client.RefreshLeeway),
	}
}

// accessExpiry reads exp from the token without verifying it; the server
// does that. An unreadable token is treated as never expiring so requests
// still go out and fail with a 401.
func accessExpiry(token string, leeway time.Duration) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Add(-leeway)
}

// accessFor returns the access token to send, rotating the pair first when
// it is inside the refresh leeway.
func (s *Session) accessFor(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, due := s.accessToken, s.dueLocked()
	s.mu.RUnlock()
	if !due {
		return token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a concurrent caller may have rotated while we waited
	if s.dueLocked() {
		if err := s.refreshLocked(ctx); err != nil {
			return "", fmt.Errorf("authsdk: refresh session: %w", err)
		}
	}
	return s.accessToken, nil
}

func (s *Session) dueLocked() bool {
	return !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt)
}

// Refresh rotates the token pair now.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return errors.New("authsdk: session has no refresh token")
	}

	req, err := s.client.newRequest(ctx, http.MethodGet, "/v1/auth/refresh-tokens", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.refreshToken)

	var data AuthData
	if _, err := s.client.do(req, &data); err != nil {
		return err
	}

	s.accessToken = data.Tokens.AccessToken
	s.refreshToken = data.Tokens.RefreshToken
	s.expiresAt = accessExpiry(s.accessToken, s.client.RefreshLeeway)
	return nil
}

// send performs a request signed with the session's access token.
func (s *Session) send(ctx context.Context, method, path string, body, target any) (string, error) {
	token, err := s.accessFor(ctx)
	if err != nil {
		return "", err
	}

	req, err := s.client.newRequest(ctx, method, path, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return s.client.do(req, target)
}

// Tokens is a snapshot of the current pair. It may be stale by the time it
// is used.
func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Tokens{AccessToken: s.accessToken, RefreshToken: s.refreshToken}
}
