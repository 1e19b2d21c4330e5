package metrics

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
)

// routeLabel returns the mux pattern the request matched, or "unmatched" for
// requests that never reached a route.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// Middleware returns HTTP middleware that records Prometheus metrics for
// every request passing through it. The handled metrics are labelled with
// the route pattern the mux matched, keeping label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServerStartedTotal.WithLabelValues(r.Method).Inc()

		m := httpsnoop.CaptureMetrics(next, w, r)

		route := routeLabel(r)
		code := strconv.Itoa(m.Code)
		ServerHandledTotal.WithLabelValues(route, r.Method, code).Inc()
		ServerHandlingSeconds.WithLabelValues(route, r.Method).Observe(m.Duration.Seconds())
	})
}
