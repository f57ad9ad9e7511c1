package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nowgo-ai/nowgo-platform/internal/telemetry"
)

// Instrument records request duration per chi route pattern.
func Instrument(metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if metrics == nil {
				return
			}
			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					endpoint = p
				}
			}
			metrics.RecordRequestDuration(endpoint, float64(time.Since(start).Microseconds())/1000)
		})
	}
}
