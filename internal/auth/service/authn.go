package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/jwtx"
)

// Principal is the outcome of a successful authentication.
type Principal struct {
	User     domain.User
	DeviceID string

	// Record is the stored token backing a refresh, reset password or
	// verify email token. Nil for access tokens.
	Record *domain.Token
}

// Authenticator checks a presented token of a given type.
type Authenticator struct {
	Keys  *jwtx.Keyring
	Store store.Store
}

var (
	errNoDevice         = errors.New("token has no device id")
	errNoRecord         = errors.New("no stored token")
	errFingerprint      = errors.New("token does not match stored record")
	errInactive         = errors.New("user is inactive")
	errUnknownTokenType = errors.New("unknown token type")
)

// Authenticate verifies raw as a token of type typ. Every failure is
// reported as ErrUnauthenticated.
//
// An access token is only good while its device still has a refresh record,
// so logging out a device kills its access tokens too. Stored token types
// must also match the fingerprint on record.
func (a *Authenticator) Authenticate(ctx context.Context, typ domain.TokenType, raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, unauthenticated(jwtx.ErrMalformed)
	}

	claims, err := a.Keys.Verify(typ, raw)
	if err != nil {
		return Principal{}, unauthenticated(err)
	}

	notBlacklisted := false
	filter := domain.TokenFilter{UserID: claims.Subject, Blacklisted: &notBlacklisted}
	device := claims.DeviceID()

	switch typ {
	case domain.TokenAccess, domain.TokenRefresh:
		if device == "" {
			return Principal{}, unauthenticated(errNoDevice)
		}
		filter.DeviceID = device
		filter.Type = domain.TokenRefresh
	case domain.TokenResetPassword, domain.TokenVerifyEmail:
		filter.Type = typ
	default:
		return Principal{}, unauthenticated(errUnknownTokenType)
	}

	rec, err := a.Store.Tokens().FindToken(ctx, filter)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, unauthenticated(errNoRecord)
		}
		return Principal{}, err
	}

	p := Principal{DeviceID: device}
	if typ != domain.TokenAccess {
		if !cryptox.MatchFingerprint(raw, rec.Fingerprint) {
			return Principal{}, unauthenticated(errFingerprint)
		}
		p.Record = &rec
	}

	user, err := a.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, unauthenticated(err)
		}
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, unauthenticated(errInactive)
	}

	p.User = user
	return p, nil
}
