package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authbase/internal/auth/oauth"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/aussiebroadwan/authbase/pkg/slogx"
)

// OAuthHandler runs the social login redirect and callback.
type OAuthHandler struct {
	Auth       *service.AuthService
	Strategies AuthStrategies
	Cookies    CookieConfig
}

func (h *OAuthHandler) provider(r *http.Request) (oauth.Provider, error) {
	p := h.Strategies.byName(r.PathValue("provider"))
	if p == nil {
		return nil, httpx.NotFound("")
	}
	return p, nil
}

// HandleRedirect godoc
//
//	@Summary		Start social login
//	@Description	Redirects to the provider's consent page. Only configured providers are available.
//	@Tags			OAuth
//	@Param			provider	path	string	true	"provider"	Enums(google, facebook)
//	@Success		302
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/{provider} [get]
func (h *OAuthHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) error {
	p, err := h.provider(r)
	if err != nil {
		return err
	}

	state, err := h.Cookies.newOAuthState(w, p.Name())
	if err != nil {
		return err
	}

	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
	return nil
}

// HandleCallback godoc
//
//	@Summary		Finish social login
//	@Description	Exchanges the authorization code, creates the account on first login and signs it in.
//	@Tags			OAuth
//	@Produce		json
//	@Param			provider	path		string	true	"provider"	Enums(google, facebook)
//	@Param			code		query		string	true	"authorization code"
//	@Param			state		query		string	true	"state from the redirect"
//	@Success		200			{object}	authsdk.Response[authsdk.AuthData]	"tokens"
//	@Failure		401			{object}	authsdk.ErrorResponse
//	@Failure		404			{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/{provider}/callback [get]
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) error {
	p, err := h.provider(r)
	if err != nil {
		return err
	}

	if !h.Cookies.checkOAuthState(w, r, p.Name()) {
		return httpx.Unauthorized(httpx.MsgPleaseAuthenticate)
	}

	id, err := p.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		if errors.Is(err, oauth.ErrMissingCode) {
			return httpx.BadRequest("Missing authorization code", nil).Wrap(err)
		}
		slogx.FromContext(r.Context()).Warn("oauth exchange failed", "provider", p.Name(), "err", err)
		return httpx.Unauthorized(httpx.MsgPleaseAuthenticate).Wrap(err)
	}

	tokens, err := h.Auth.OAuthLogin(r.Context(), id)
	if err != nil {
		return serviceError(err)
	}

	h.Cookies.setTokensCookie(w, tokens)
	httpx.Respond(w, http.StatusOK, "", tokensData{Tokens: tokens})
	return nil
}
