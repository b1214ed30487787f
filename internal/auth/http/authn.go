package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/aussiebroadwan/authbase/pkg/slogx"
)

type principalKey struct{}

// principalFrom returns the caller put on the context by requireToken.
func principalFrom(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(service.Principal)
	return p, ok
}

var (
	accessTokenSource = httpx.FirstToken(
		httpx.BearerToken,
		httpx.CookieJSONField(tokensCookie, "access_token"),
	)
	refreshTokenSource = httpx.FirstToken(
		httpx.BearerToken,
		httpx.CookieJSONField(tokensCookie, "refresh_token"),
	)
	linkTokenSource = httpx.QueryParam("token")
)

// requireToken admits requests carrying a valid token of type typ and puts
// the resulting Principal on the context. Store failures during the check
// are internal errors, not 401s.
func requireToken(authn *service.Authenticator, typ domain.TokenType, extract httpx.TokenExtractor) httpx.Middleware {
	return httpx.AuthnMiddleware(extract, func(ctx context.Context, raw string) (context.Context, error) {
		p, err := authn.Authenticate(ctx, typ, raw)
		if errors.Is(err, service.ErrUnauthenticated) {
			return nil, httpx.Unauthorized(httpx.MsgPleaseAuthenticate).Wrap(err)
		}
		if err != nil {
			return nil, fmt.Errorf("authenticate %s token: %w", typ, err)
		}

		ctx = context.WithValue(ctx, principalKey{}, p)
		ctx = httpx.WithUserID(ctx, p.User.ID, p.DeviceID)
		ctx = slogx.WithUserID(ctx, p.User.ID, p.DeviceID)
		return ctx, nil
	})
}

// mustPrincipal is for handlers mounted behind requireToken.
func mustPrincipal(ctx context.Context) (service.Principal, error) {
	p, ok := principalFrom(ctx)
	if !ok {
		return service.Principal{}, httpx.Unauthorized(httpx.MsgPleaseAuthenticate)
	}
	return p, nil
}
