package routes_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hostportal/backend/internal/api/handlers"
	"github.com/zatekoja/hostportal/backend/internal/api/middleware"
	"github.com/zatekoja/hostportal/backend/internal/api/routes"
	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/upstream"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hostportal/backend/pkg/config"
)

type upProber struct{}

func (upProber) Probe(ctx context.Context) (*upstream.ProbeResult, error) {
	return &upstream.ProbeResult{StatusCode: http.StatusOK, Latency: time.Millisecond}, nil
}

func newGateway(t *testing.T) (http.Handler, *httptest.Server) {
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Path", r.URL.Path)
		w.Header().Set("X-Seen-Portal", r.Header.Get("X-Portal"))
		_, _ = w.Write([]byte("frontend"))
	}))
	t.Cleanup(frontend.Close)

	portalCfg := config.PortalConfig{
		AdminSubdomain:    "admin",
		ProviderSubdomain: "provider",
		HostSubdomain:     "hoster",
		HostPaths:         config.DefaultHostPaths,
		RedirectStatus:    http.StatusTemporaryRedirect,
		DefaultScheme:     "https",
	}
	router := services.NewPortalRouter(portalCfg)
	routeMetrics := observability.NewRouteMetrics("test")

	proxy, err := upstream.NewProxy(&config.UpstreamConfig{URL: frontend.URL, TimeoutSeconds: 2}, nil, routeMetrics)
	require.NoError(t, err)

	gateway := routes.NewRouter(
		handlers.NewHealthHandler(upProber{}, nil, nil),
		handlers.NewResolveHandler(router, "https", http.StatusTemporaryRedirect),
		handlers.NewAnalyticsHandler(nil),
		middleware.NewSubdomainRouting(router, portalCfg, routeMetrics, nil),
		nil,
		nil,
		proxy,
		nil,
		routeMetrics,
	).SetupRoutes()

	return gateway, frontend
}

func TestRouter_ProxiesRewrittenPortalRequest(t *testing.T) {
	gateway, _ := newGateway(t)

	rec := httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://admin.example.com/users", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frontend", rec.Body.String())
	assert.Equal(t, "/admin/users", rec.Header().Get("X-Seen-Path"))
	assert.Equal(t, "admin", rec.Header().Get("X-Seen-Portal"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_RedirectsWithoutProxying(t *testing.T) {
	gateway, _ := newGateway(t)

	rec := httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://hoster.example.com/admin/users", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://admin.example.com/users", rec.Header().Get("Location"))
	assert.Empty(t, rec.Header().Get("X-Seen-Path"))
}

func TestRouter_StaticAssetHeaders(t *testing.T) {
	gateway, _ := newGateway(t)

	rec := httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://admin.example.com/_next/static/chunks/app.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/_next/static/chunks/app.js", rec.Header().Get("X-Seen-Path"))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
}

func TestRouter_GatewayEndpointsAreNotRouted(t *testing.T) {
	gateway, _ := newGateway(t)

	rec := httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://admin.example.com/_gateway/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	gateway.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://admin.example.com/users", nil))

	rec = httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/_gateway/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_route_decisions_total{action="rewrite",portal="admin",reason="portal_rewrite"} 1`)
	assert.Contains(t, string(body), "go_goroutines")

	rec = httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/_gateway/analytics/redirects", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
