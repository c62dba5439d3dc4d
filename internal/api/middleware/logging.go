package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
)

// LoggingMiddleware logs one line per HTTP request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, _ := withDecisionSlot(r.Context())
		path := r.URL.Path

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r.WithContext(ctx))

		logger := observability.LoggerFromContext(ctx)
		var event *zerolog.Event
		switch {
		case rw.statusCode >= http.StatusInternalServerError:
			event = logger.Error()
		case rw.statusCode >= http.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event.
			Str("method", r.Method).
			Str("host", r.Host).
			Str("path", path).
			Int("status", rw.statusCode).
			Int("bytes", rw.bytes).
			Dur("duration", time.Since(start)).
			Str("request_id", RequestIDFromContext(ctx))

		if decision, ok := RouteDecisionFromContext(ctx); ok {
			event.
				Str("portal", string(decision.Host.Portal)).
				Str("action", string(decision.Action)).
				Str("reason", string(decision.Reason))
			if decision.RewritePath != "" {
				event.Str("rewrite_path", decision.RewritePath)
			}
		}

		event.Msg("request")
	})
}
