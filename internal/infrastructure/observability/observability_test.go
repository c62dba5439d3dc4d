package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_JSONOutsideDevelopment(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	initLogger(&buf, "portal-gateway", "production", "warn")

	log.Info().Msg("dropped")
	log.Warn().Str("portal", "admin").Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "portal-gateway", entry["service"])
	assert.Equal(t, "admin", entry["portal"])
	assert.Equal(t, "kept", entry["message"])
}

func TestLoggerFromContext_WithoutSpan(t *testing.T) {
	logger := LoggerFromContext(context.Background())
	require.NotNil(t, logger)
}

func TestInitMetrics_NoopProvider(t *testing.T) {
	metrics, err := InitMetrics()
	require.NoError(t, err)

	// The global no-op provider must accept records without panicking.
	RecordRequestMetric(context.Background(), metrics, http.MethodGet, "admin", "rewrite", http.StatusOK, time.Millisecond)
	RecordUpstreamMetric(context.Background(), metrics, http.StatusOK, time.Millisecond)
	RecordCacheHit(context.Background(), metrics, "/_next/static")
	RecordCacheMiss(context.Background(), nil, "/_next/static")
}

func TestRouteMetrics(t *testing.T) {
	m := NewRouteMetrics("test_gateway")

	m.ObserveDecision("admin", "rewrite", "portal_rewrite")
	m.ObserveDecision("admin", "rewrite", "portal_rewrite")
	m.ObserveRedirect("none", "host")
	m.IncUpstreamErrors()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("admin", "rewrite", "portal_rewrite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redirects.WithLabelValues("none", "host")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamErrors))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_gateway/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_gateway_route_decisions_total")

	var nilMetrics *RouteMetrics
	nilMetrics.ObserveDecision("admin", "pass", "public_path")
}
