package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/oauth"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/aussiebroadwan/authbase/pkg/metricsx"
	"github.com/aussiebroadwan/authbase/pkg/slogx"

	_ "github.com/aussiebroadwan/authbase/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// AuthStrategies holds the social login providers. A nil provider is not
// offered and its routes answer 404.
type AuthStrategies struct {
	Google   oauth.Provider
	Facebook oauth.Provider
}

func (s AuthStrategies) byName(name string) oauth.Provider {
	switch name {
	case oauth.ProviderGoogle:
		return s.Google
	case oauth.ProviderFacebook:
		return s.Facebook
	}
	return nil
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	metrics      *metricsx.Metrics

	AuthService   *service.AuthService
	UserService   *service.UserService
	Authenticator *service.Authenticator
	Authorizer    *service.Authorizer
	Strategies    AuthStrategies
	Cookies       CookieConfig

	// OTPCounter shares the OTP limiter between replicas. Nil keeps it in
	// process memory.
	OTPCounter httpx.WindowCounter
	// LimiterCheck reports the health of whatever backs OTPCounter.
	LimiterCheck func(context.Context) error
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger, metrics *metricsx.Metrics) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		metrics:      metrics,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	if metrics != nil {
		r.middlewares = append(r.middlewares, metrics.HTTPMiddleware())
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOTP()
	r.registerOAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			authbase API
//	@version		0.1.0
//	@description	User registration, login, password reset, email verification, two factor authentication,
//	@description	social login and role based user management.
//	@description
//	@description				Tokens are HS384 JWTs. Send them as a bearer token or let the httpOnly "tokens" cookie carry them.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/authbase
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:3000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token (refresh token for /v1/auth/refresh-tokens). Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) access() httpx.Middleware {
	return requireToken(r.Authenticator, domain.TokenAccess, accessTokenSource)
}

// otpLimit builds the OTP limiter, shared through OTPCounter when one is set.
func (r *Router) otpLimit() httpx.Middleware {
	if r.OTPCounter != nil {
		return httpx.RateLimitWithCounter(httpx.OTPLimit, r.OTPCounter, httpx.IPKeyExtractor)
	}
	return httpx.RateLimitByIP(httpx.OTPLimit)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService, Cookies: r.Cookies}

	// Credential endpoints - strict limit by IP + email to slow down guessing
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(httpx.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(httpx.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(httpx.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	// Link tokens arrive as ?token=
	r.Mux.Handle("POST /v1/auth/reset-password",
		httpx.Chain(httpx.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
			requireToken(r.Authenticator, domain.TokenResetPassword, linkTokenSource),
		),
	)
	r.Mux.Handle("POST /v1/auth/verify-email",
		httpx.Chain(httpx.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.StrictLimit),
			requireToken(r.Authenticator, domain.TokenVerifyEmail, linkTokenSource),
		),
	)

	// Session endpoints
	r.Mux.Handle("DELETE /v1/auth/logout",
		httpx.Chain(httpx.HandlerFunc(h.HandleLogout),
			requireToken(r.Authenticator, domain.TokenRefresh, refreshTokenSource),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/auth/refresh-tokens",
		httpx.Chain(httpx.HandlerFunc(h.HandleRefresh),
			requireToken(r.Authenticator, domain.TokenRefresh, refreshTokenSource),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/send-verification-email",
		httpx.Chain(httpx.HandlerFunc(h.HandleSendVerificationEmail),
			r.access(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{Auth: r.AuthService, Cookies: r.Cookies}

	r.Mux.Handle("POST /v1/auth/otp/send",
		httpx.Chain(httpx.HandlerFunc(h.HandleSend),
			r.access(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// verify and resend are reachable without a session, so they share the
	// OTP limiter
	limit := r.otpLimit()
	r.Mux.Handle("POST /v1/auth/otp/verify", httpx.Chain(httpx.HandlerFunc(h.HandleVerify), limit))
	r.Mux.Handle("POST /v1/auth/otp/resend", httpx.Chain(httpx.HandlerFunc(h.HandleResend), limit))
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{Auth: r.AuthService, Strategies: r.Strategies, Cookies: r.Cookies}

	r.Mux.Handle("GET /v1/auth/{provider}",
		httpx.Chain(httpx.HandlerFunc(h.HandleRedirect),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/auth/{provider}/callback",
		httpx.Chain(httpx.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.UserService, Authz: r.Authorizer}

	secured := func(fn httpx.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.access(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/users", secured(h.HandleList))
	r.Mux.Handle("POST /v1/users", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/users/{id}", secured(h.HandleGet))
	r.Mux.Handle("PUT /v1/users/{id}", secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/users/{id}", secured(h.HandleDelete))
}

func (r *Router) registerSystem() {
	h := &HealthHandler{
		Version: r.buildVersion,
		Started: r.startTime,
		Store:   r.store,
		Limiter: r.LimiterCheck,
	}

	// probes get polled, so only the loosest limits apply
	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(h.HandleLivez), httpx.RateLimitByIP(httpx.LenientLimit)))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(h.HandleReadyz), httpx.RateLimitByIP(httpx.LenientLimit)))
	r.Mux.Handle("GET /v1/ping", httpx.Chain(http.HandlerFunc(h.HandlePing), httpx.RateLimitByIP(httpx.PublicLimit)))

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
