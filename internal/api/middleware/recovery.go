package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
)

// Recovery turns a panic in the chain into a 500 JSON response
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// the server relies on this sentinel to abort a response
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			observability.LoggerFromContext(r.Context()).Error().
				Interface("panic", rec).
				Str("path", r.URL.Path).
				Str("request_id", RequestIDFromContext(r.Context())).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")

			if rw.wroteHeader {
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(http.StatusInternalServerError)
			_, _ = rw.Write([]byte(`{"error":"internal server error"}`))
		}()

		next.ServeHTTP(rw, r)
	})
}
