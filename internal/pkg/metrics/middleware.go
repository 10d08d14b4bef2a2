package metrics

import (
	"net/http"
	"time"
)

const (
	// MetricsPath is the default path for the metrics endpoint
	MetricsPath = "/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default to 200 if WriteHeader is never called
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(data)
}

// PrometheusMiddleware creates HTTP middleware that records Prometheus metrics.
// Requests to metricsPath are passed through unrecorded.
func PrometheusMiddleware(registry Registry, metricsPath string) func(http.Handler) http.Handler {
	if metricsPath == "" {
		metricsPath = MetricsPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == metricsPath {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			registry.IncHTTPRequestsInFlight()
			defer registry.DecHTTPRequestsInFlight()

			ww := newResponseWriter(w)
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			registry.RecordHTTPRequest(r.Method, GetRoutePath(r), FormatStatusCode(ww.statusCode), duration)
		})
	}
}
