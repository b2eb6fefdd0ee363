package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fileblog/internal/observability"
)

// Metrics records request count and latency per chi route pattern.
//
// The pattern ("/posts/{id}"), not the raw path, is the label: one series per
// route instead of one per post ID. Unmatched requests are grouped under
// "unmatched".
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		observability.HTTPRequestsTotal.
			WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).
			Inc()
		observability.HTTPRequestDuration.
			WithLabelValues(route, r.Method).
			Observe(time.Since(start).Seconds())
	})
}
