package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GetRoutePath extracts the route pattern from the request context
// This helps group metrics by route pattern rather than specific values
func GetRoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return NormalizePath(r.URL.Path)
}

// NormalizePath normalizes URL paths to reduce cardinality in metrics
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	switch {
	case path == "/health", path == "/ready", path == MetricsPath, path == "/shorten", path == "/redoc":
		return path
	case path == "/api/mappings":
		return path
	case strings.HasPrefix(path, "/swagger"):
		return "/swagger/*"
	case strings.HasPrefix(path, "/api/mappings/code/"):
		return "/api/mappings/code/{code}"
	case strings.HasPrefix(path, "/api/mappings/"):
		return "/api/mappings/{id}"
	case strings.HasPrefix(path, "/shorten/"):
		return "/shorten/{code}"
	}

	// Anything else is an unknown route; collapse it to keep label cardinality bounded.
	return "/unmatched"
}

// FormatStatusCode converts an integer status code to string
func FormatStatusCode(statusCode int) string {
	return strconv.Itoa(statusCode)
}
