package middleware_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hostportal/backend/internal/api/middleware"
	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hostportal/backend/pkg/config"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []*entities.RedirectEvent
}

func (t *recordingTracker) Track(event *entities.RedirectEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func testPortalConfig() config.PortalConfig {
	return config.PortalConfig{
		AdminSubdomain:    "admin",
		ProviderSubdomain: "provider",
		HostSubdomain:     "hoster",
		HostPaths:         config.DefaultHostPaths,
		DefaultScheme:     "https",
	}
}

// upstreamEcho captures what the next handler saw
type upstreamEcho struct {
	called       bool
	path         string
	rawQuery     string
	portal       string
	originalPath string
	decision     entities.RouteDecision
}

func (u *upstreamEcho) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.called = true
	u.path = r.URL.Path
	u.rawQuery = r.URL.RawQuery
	u.portal = r.Header.Get(middleware.PortalHeader)
	u.originalPath = r.Header.Get(middleware.OriginalPathHeader)
	u.decision, _ = middleware.RouteDecisionFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func newRouting(cfg config.PortalConfig, metrics *observability.RouteMetrics, tracker middleware.RedirectTracker) *middleware.SubdomainRouting {
	return middleware.NewSubdomainRouting(services.NewPortalRouter(cfg), cfg, metrics, tracker)
}

func TestSubdomainRouting_RewritesOnAdminHost(t *testing.T) {
	upstream := &upstreamEcho{}
	handler := newRouting(testPortalConfig(), nil, nil).Middleware(upstream)

	req := httptest.NewRequest(http.MethodGet, "http://admin.example.com/users?page=2", nil)
	req.Header.Set(middleware.PortalHeader, "spoofed")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, upstream.called)
	assert.Equal(t, "/admin/users", upstream.path)
	assert.Equal(t, "page=2", upstream.rawQuery)
	assert.Equal(t, "admin", upstream.portal)
	assert.Equal(t, "/users", upstream.originalPath)
	assert.Equal(t, entities.RouteActionRewrite, upstream.decision.Action)
}

func TestSubdomainRouting_LoginAlias(t *testing.T) {
	upstream := &upstreamEcho{}
	handler := newRouting(testPortalConfig(), nil, nil).Middleware(upstream)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://provider.example.com/login", nil))

	assert.Equal(t, "/provider/login", upstream.path)
	assert.Equal(t, entities.RouteReasonAlias, upstream.decision.Reason)
}

func TestSubdomainRouting_PassesPublicPaths(t *testing.T) {
	upstream := &upstreamEcho{}
	handler := newRouting(testPortalConfig(), nil, nil).Middleware(upstream)

	for _, path := range []string{"/api/listings", "/_next/static/chunk.js", "/favicon.ico", "/logo.svg"} {
		upstream.called = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://admin.example.com"+path, nil))

		assert.True(t, upstream.called, path)
		assert.Equal(t, path, upstream.path, path)
		assert.Empty(t, upstream.originalPath, path)
	}
}

func TestSubdomainRouting_RedirectsToOwningPortal(t *testing.T) {
	tracker := &recordingTracker{}
	metrics := observability.NewRouteMetrics("test")
	upstream := &upstreamEcho{}
	handler := newRouting(testPortalConfig(), metrics, tracker).Middleware(upstream)

	req := httptest.NewRequest(http.MethodGet, "http://staging.admin.example.com:8443/calendar?month=5", nil)
	req.Header.Set("Referer", "https://staging.admin.example.com/")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, upstream.called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://staging.hoster.example.com:8443/calendar?month=5", rec.Header().Get("Location"))

	require.Len(t, tracker.events, 1)
	event := tracker.events[0]
	assert.Equal(t, entities.PortalAdmin, event.SourcePortal)
	assert.Equal(t, entities.PortalHost, event.TargetPortal)
	assert.Equal(t, "https://staging.admin.example.com/", event.Referer)
	assert.Equal(t, "https://staging.hoster.example.com:8443/calendar?month=5", event.TargetURL)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Redirects.WithLabelValues("admin", "host")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Decisions.WithLabelValues("admin", "redirect", "other_portal")))
}

func TestSubdomainRouting_RedirectKeepsEncodedPath(t *testing.T) {
	tests := []struct {
		target   string
		location string
	}{
		{"http://example.com/admin/report%3Fid=1?x=2", "https://admin.example.com/report%3Fid=1?x=2"},
		{"http://example.com/admin/files%23frag", "https://admin.example.com/files%23frag"},
		{"http://example.com/admin/a%20b", "https://admin.example.com/a%20b"},
		{"http://example.com/admin/caf%C3%A9", "https://admin.example.com/caf%C3%A9"},
	}

	handler := newRouting(testPortalConfig(), nil, nil).Middleware(&upstreamEcho{})
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestSubdomainRouting_RootDomainPrefixRedirect(t *testing.T) {
	cfg := testPortalConfig()
	cfg.RedirectStatus = http.StatusFound
	handler := newRouting(cfg, nil, nil).Middleware(&upstreamEcho{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://www.example.com/provider/payouts", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://provider.example.com/payouts", rec.Header().Get("Location"))
}

func TestSubdomainRouting_Scheme(t *testing.T) {
	cfg := testPortalConfig()
	cfg.DefaultScheme = "http"
	handler := newRouting(cfg, nil, nil).Middleware(&upstreamEcho{})

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"default", func(r *http.Request) {}, "http://admin.example.com/users"},
		{"forwarded proto", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https, http") }, "https://admin.example.com/users"},
		{"tls", func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, "https://admin.example.com/users"},
		{"bogus proto", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "gopher") }, "http://admin.example.com/users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/admin/users", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestSubdomainRouting_IPHostPassesThrough(t *testing.T) {
	upstream := &upstreamEcho{}
	handler := newRouting(testPortalConfig(), nil, nil).Middleware(upstream)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://10.0.0.5:8080/admin/users", nil))

	assert.True(t, upstream.called)
	assert.Equal(t, "/admin/users", upstream.path)
	assert.Empty(t, upstream.portal)
	assert.Equal(t, entities.RouteReasonNoPortal, upstream.decision.Reason)
}
