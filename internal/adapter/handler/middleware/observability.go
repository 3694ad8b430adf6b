package middleware

import (
	"net/http"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/observability"
)

// Observability records HTTP metrics under a fixed route label.
// The label is the mux pattern, so routing keys never become metric labels.
func Observability(metrics *observability.Metrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			metrics.HTTPRequestsActive.Add(r.Context(), 1)
			defer metrics.HTTPRequestsActive.Add(r.Context(), -1)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			metrics.RecordHTTPRequest(
				r.Context(),
				r.Method,
				route,
				rw.statusCode,
				time.Since(start),
			)
		})
	}
}
