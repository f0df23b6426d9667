package http

import (
	"net/http"
	"strings"
	"time"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// WithMetrics records a count and duration for every request, labeled by
// route template rather than the raw path.
func WithMetrics(next http.Handler, metrics *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		metrics.RecordRequest(r.Context(), r.Method, routeTemplate(r.URL.Path), rw.statusCode, duration)
	})
}

// routeTemplate collapses order IDs so every /v1/orders/{id} variant lands
// on one metric series.
func routeTemplate(path string) string {
	if rest, ok := strings.CutPrefix(path, "/v1/orders/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/cancel") {
			return "/v1/orders/{id}/cancel"
		}
		return "/v1/orders/{id}"
	}
	return path
}
