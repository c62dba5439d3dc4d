package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteMetrics holds Prometheus collectors for routing decisions
type RouteMetrics struct {
	registry *prometheus.Registry

	Decisions        *prometheus.CounterVec
	Redirects        *prometheus.CounterVec
	UpstreamErrors   prometheus.Counter
	RequestLatency   *prometheus.HistogramVec
	AnalyticsDropped prometheus.Counter
}

// NewRouteMetrics builds and registers the collectors on a dedicated registry
func NewRouteMetrics(namespace string) *RouteMetrics {
	m := &RouteMetrics{
		registry: prometheus.NewRegistry(),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Routing decisions by host portal, action and reason.",
		}, []string{"portal", "action", "reason"}),
		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Redirects issued by source and target portal.",
		}, []string{"source", "target"}),
		UpstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Requests that failed to reach the frontend upstream.",
		}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of proxied requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"portal", "action"}),
		AnalyticsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_dropped_total",
			Help:      "Redirect events that could not be recorded.",
		}),
	}

	m.registry.MustRegister(
		m.Decisions,
		m.Redirects,
		m.UpstreamErrors,
		m.RequestLatency,
		m.AnalyticsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDecision counts a routing decision
func (m *RouteMetrics) ObserveDecision(portal, action, reason string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(portal, action, reason).Inc()
}

// ObserveRedirect counts a redirect between portals
func (m *RouteMetrics) ObserveRedirect(source, target string) {
	if m == nil {
		return
	}
	m.Redirects.WithLabelValues(source, target).Inc()
}

// ObserveLatency records the time taken to serve a request
func (m *RouteMetrics) ObserveLatency(portal, action string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(portal, action).Observe(d.Seconds())
}

// IncUpstreamErrors counts a failed upstream round trip
func (m *RouteMetrics) IncUpstreamErrors() {
	if m == nil {
		return
	}
	m.UpstreamErrors.Inc()
}

// IncAnalyticsDropped counts a redirect event that was lost
func (m *RouteMetrics) IncAnalyticsDropped() {
	if m == nil {
		return
	}
	m.AnalyticsDropped.Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *RouteMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *RouteMetrics) Registry() *prometheus.Registry {
	return m.registry
}
