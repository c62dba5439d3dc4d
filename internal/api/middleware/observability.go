package middleware

import (
	"net/http"
	"time"

	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests
func ObservabilityMiddleware(metrics *observability.Metrics, routeMetrics *observability.RouteMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// span names stay low-cardinality; the path goes in an attribute
			ctx, span := observability.StartSpan(r.Context(), "gateway "+r.Method)
			defer span.End()
			ctx, _ = withDecisionSlot(ctx)

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.host", r.Host),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			)

			rw := newResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(rw, r.WithContext(ctx))

			duration := time.Since(start)
			portal, action := decisionLabels(ctx)
			observability.RecordRequestMetric(ctx, metrics, r.Method, portal, action, rw.statusCode, duration)
			routeMetrics.ObserveLatency(portal, action, duration)

			observability.SetSpanAttributes(span,
				attribute.Int("http.status_code", rw.statusCode),
				attribute.String("gateway.portal", portal),
				attribute.String("gateway.action", action),
			)
		})
	}
}
