package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainvault/internal/platform/metrics"
	request "domainvault/pkg/platform/middleware/request"
)

// LatencyMiddleware records request duration by chi route pattern.
// A nil metrics value disables recording.
func LatencyMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &request.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(r.Method, route, rec.Status, time.Since(start))
		})
	}
}
