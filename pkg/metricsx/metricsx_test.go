package metricsx_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/authbase/pkg/idx"
	"github.com/aussiebroadwan/authbase/pkg/metricsx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestAuthEvent(t *testing.T) {
	m := metricsx.New("authbase")

	m.AuthEvent("login", nil)
	m.AuthEvent("login", nil)
	m.AuthEvent("login", errors.New("wrong password"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "failure")))
}

func TestTokensPurged(t *testing.T) {
	m := metricsx.New("authbase")
	m.TokensPurged(3)
	m.TokensPurged(0)
	require.Equal(t, 3.0, testutil.ToFloat64(m.ExpiredPurged))
}

func TestHTTPMiddleware(t *testing.T) {
	m := metricsx.New("authbase")
	id := idx.New().String()

	h := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/users/"+id, nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/users/{id}", "404")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metricsx.New("authbase")
	m.AuthEvent("register", nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `authbase_auth_events_total{event="register",outcome="success"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}

func TestRouteLabel(t *testing.T) {
	id := idx.New().String()
	require.Equal(t, "/v1/users/{id}", metricsx.RouteLabel("/v1/users/"+id))
	require.Equal(t, "/v1/auth/login", metricsx.RouteLabel("/v1/auth/login"))
}
