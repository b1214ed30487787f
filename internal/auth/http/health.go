package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/authsdk"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
)

const readinessTimeout = 2 * time.Second

// HealthHandler answers the probes.
type HealthHandler struct {
	Version string
	Started time.Time
	Store   store.Store
	// Limiter checks the shared OTP limiter backend; nil when there is none.
	Limiter func(context.Context) error
}

func (h *HealthHandler) report(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.Started).Round(time.Second).String(),
		Version: h.Version,
		Checks:  checks,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving. Reports uptime and build version.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get]
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.report("ok", nil))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	503 when the database does not answer. A failing rate limiter backend marks the
//	@Description	report degraded but keeps the service ready, since limiting fails open.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"database unreachable"
//	@Router			/readyz [get]
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		checks = &authsdk.HealthChecks{Database: "ok"}
		status = "ok"
		code   = http.StatusOK
	)

	if err := h.Store.Ping(ctx); err != nil {
		checks.Database = "error: " + err.Error()
		status, code = "degraded", http.StatusServiceUnavailable
	}
	if h.Limiter != nil {
		checks.Limiter = "ok"
		if err := h.Limiter(ctx); err != nil {
			checks.Limiter = "error: " + err.Error()
			status = "degraded"
		}
	}

	httpx.WriteJSON(w, code, h.report(status, checks))
}

// HandlePing godoc
//
//	@Summary	Ping
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	authsdk.MessageResponse
//	@Router		/v1/ping [get]
func (h *HealthHandler) HandlePing(w http.ResponseWriter, _ *http.Request) {
	httpx.Respond(w, http.StatusOK, "Pong!!", nil)
}
