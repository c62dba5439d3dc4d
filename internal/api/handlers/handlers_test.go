package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hostportal/backend/internal/api/handlers"
	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/upstream"
	"github.com/zatekoja/hostportal/backend/pkg/config"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

type stubProber struct {
	err error
}

func (s *stubProber) Probe(ctx context.Context) (*upstream.ProbeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &upstream.ProbeResult{StatusCode: http.StatusOK, Latency: 3 * time.Millisecond}, nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func decodeReadiness(t *testing.T, w *httptest.ResponseRecorder) handlers.ReadinessResponse {
	t.Helper()
	var resp handlers.ReadinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHealthHandler_Health(t *testing.T) {
	handler := handlers.NewHealthHandler(&stubProber{}, nil, nil)
	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/_gateway/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHealthHandler_Ready(t *testing.T) {
	handler := handlers.NewHealthHandler(&stubProber{}, &stubPinger{}, nil)
	w := httptest.NewRecorder()
	handler.Ready(w, httptest.NewRequest(http.MethodGet, "/_gateway/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeReadiness(t, w)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "up", resp.Components["upstream"].Status)
	assert.Equal(t, int64(3), resp.Components["upstream"].LatencyMS)
	assert.Equal(t, "up", resp.Components["postgres"].Status)
	assert.Equal(t, "disabled", resp.Components["redis"].Status)
}

func TestHealthHandler_ReadyDegraded(t *testing.T) {
	handler := handlers.NewHealthHandler(&stubProber{}, &stubPinger{}, &stubPinger{err: errors.New("connection refused")})
	w := httptest.NewRecorder()
	handler.Ready(w, httptest.NewRequest(http.MethodGet, "/_gateway/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeReadiness(t, w)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Components["redis"].Status)
	assert.Equal(t, "connection refused", resp.Components["redis"].Error)
}

func TestHealthHandler_ReadyUpstreamDown(t *testing.T) {
	handler := handlers.NewHealthHandler(&stubProber{err: apperrors.NewExternalError("upstream probe failed", errors.New("dial tcp"))}, nil, nil)
	w := httptest.NewRecorder()
	handler.Ready(w, httptest.NewRequest(http.MethodGet, "/_gateway/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeReadiness(t, w)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "down", resp.Components["upstream"].Status)
}

func newResolveHandler() *handlers.ResolveHandler {
	router := services.NewPortalRouter(config.PortalConfig{
		AdminSubdomain:    "admin",
		ProviderSubdomain: "provider",
		HostSubdomain:     "hoster",
		HostPaths:         config.DefaultHostPaths,
	})
	return handlers.NewResolveHandler(router, "https", http.StatusTemporaryRedirect)
}

func TestResolveHandler_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	newResolveHandler().Resolve(w, httptest.NewRequest(http.MethodGet, "/_gateway/resolve?host=example.com&path=/inbox/42", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "redirect", resp["action"])
	assert.Equal(t, "portal_path", resp["reason"])
	assert.Equal(t, "host", resp["target_portal"])
	assert.Equal(t, "https://hoster.example.com/inbox/42", resp["location"])
	assert.EqualValues(t, 307, resp["status"])
}

func TestResolveHandler_Rewrite(t *testing.T) {
	w := httptest.NewRecorder()
	newResolveHandler().Resolve(w, httptest.NewRequest(http.MethodGet, "/_gateway/resolve?host=provider.example.com", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "rewrite", resp["action"])
	assert.Equal(t, "/provider", resp["rewrite_path"])
	assert.NotContains(t, resp, "location")
}

func TestResolveHandler_Validation(t *testing.T) {
	for _, target := range []string{"/_gateway/resolve", "/_gateway/resolve?host=example.com&path=admin"} {
		w := httptest.NewRecorder()
		newResolveHandler().Resolve(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

type stubStats struct {
	since time.Time
	limit int
	err   error
}

func (s *stubStats) TopRedirects(ctx context.Context, since time.Time, limit int) ([]*entities.RedirectStat, error) {
	s.since = since
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return []*entities.RedirectStat{
		{SourcePortal: entities.PortalNone, TargetPortal: entities.PortalAdmin, Path: "/admin/users", Count: 9},
	}, nil
}

func TestAnalyticsHandler_TopRedirects(t *testing.T) {
	stats := &stubStats{}
	handler := handlers.NewAnalyticsHandler(stats)

	w := httptest.NewRecorder()
	handler.TopRedirects(w, httptest.NewRequest(http.MethodGet, "/_gateway/analytics/redirects?limit=5&hours=24", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RedirectStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, int64(9), resp.Redirects[0].Count)
	assert.Equal(t, 5, stats.limit)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), stats.since, time.Minute)
}

func TestAnalyticsHandler_ClampsHours(t *testing.T) {
	stats := &stubStats{}
	handler := handlers.NewAnalyticsHandler(stats)

	w := httptest.NewRecorder()
	handler.TopRedirects(w, httptest.NewRequest(http.MethodGet, "/_gateway/analytics/redirects?hours=9223372036854775807", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, stats.since.Before(time.Now()))
	assert.WithinDuration(t, time.Now().Add(-366*24*time.Hour), stats.since, time.Minute)
}

func TestAnalyticsHandler_Errors(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.NewAnalyticsHandler(nil).TopRedirects(w, httptest.NewRequest(http.MethodGet, "/_gateway/analytics/redirects", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"redirect analytics is disabled"}`, w.Body.String())

	w = httptest.NewRecorder()
	handlers.NewAnalyticsHandler(&stubStats{}).TopRedirects(w, httptest.NewRequest(http.MethodGet, "/_gateway/analytics/redirects?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	failing := &stubStats{err: apperrors.NewInternalError("failed to query redirect stats", errors.New("timeout"))}
	handlers.NewAnalyticsHandler(failing).TopRedirects(w, httptest.NewRequest(http.MethodGet, "/_gateway/analytics/redirects", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}
