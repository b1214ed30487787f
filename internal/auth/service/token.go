package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/idx"
	"github.com/aussiebroadwan/authbase/pkg/jwtx"
	"github.com/google/uuid"
)

// TokenService mints the signed tokens and persists the ones that must be
// revocable (refresh, reset password, verify email). Access tokens live
// only as long as the refresh record of their device.
type TokenService struct {
	Keys  *jwtx.Keyring
	Store store.Store

	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration

	now func() time.Time
}

func (s *TokenService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// newDeviceID names the login session a refresh token belongs to.
func newDeviceID() string { return uuid.NewString() }

// IssueAuthTokens starts a new device session for userID: an access and a
// refresh token sharing a fresh device id, with the refresh record stored.
// Nothing is returned if the record cannot be stored.
func (s *TokenService) IssueAuthTokens(ctx context.Context, userID string) (domain.AuthTokens, error) {
	now := s.clock()
	device := newDeviceID()

	access, err := s.Keys.Sign(jwtx.NewClaims(userID, domain.TokenAccess, device, s.Keys.Issuer(), s.AccessTTL, now))
	if err != nil {
		return domain.AuthTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.issueStored(ctx, userID, domain.TokenRefresh, device, s.RefreshTTL, now)
	if err != nil {
		return domain.AuthTokens{}, err
	}

	return domain.AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueResetPasswordToken mints and stores a reset password token.
func (s *TokenService) IssueResetPasswordToken(ctx context.Context, userID string) (string, error) {
	return s.issueStored(ctx, userID, domain.TokenResetPassword, "", s.ResetPasswordTTL, s.clock())
}

// IssueVerifyEmailToken mints and stores an email verification token.
func (s *TokenService) IssueVerifyEmailToken(ctx context.Context, userID string) (string, error) {
	return s.issueStored(ctx, userID, domain.TokenVerifyEmail, "", s.VerifyEmailTTL, s.clock())
}

func (s *TokenService) issueStored(ctx context.Context, userID string, typ domain.TokenType, device string, ttl time.Duration, now time.Time) (string, error) {
	signed, err := s.Keys.Sign(jwtx.NewClaims(userID, typ, device, s.Keys.Issuer(), ttl, now))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}

	err = s.Store.Tokens().CreateToken(ctx, domain.Token{
		ID:          idx.NewAt(now).String(),
		UserID:      userID,
		Fingerprint: cryptox.Fingerprint(signed),
		Type:        typ,
		DeviceID:    device,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	})
	if err != nil {
		return "", fmt.Errorf("persist %s token: %w", typ, err)
	}
	return signed, nil
}

// Revoke removes the stored token of type typ for the user, scoped to a
// device when one is given. Revoking a missing token is not an error.
func (s *TokenService) Revoke(ctx context.Context, userID string, typ domain.TokenType, device string) error {
	return s.Store.Tokens().DeleteToken(ctx, domain.TokenFilter{UserID: userID, Type: typ, DeviceID: device})
}

// RevokeAll removes every stored token of the user, of any type when typ is
// empty.
func (s *TokenService) RevokeAll(ctx context.Context, userID string, typ domain.TokenType) (int64, error) {
	return s.Store.Tokens().DeleteTokens(ctx, domain.TokenFilter{UserID: userID, Type: typ})
}
