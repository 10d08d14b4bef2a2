package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpswagger "github.com/swaggo/http-swagger"

	"github.com/sp3dr4/tern/config"
	"github.com/sp3dr4/tern/internal/pkg/metrics"
)

func NewRouter(handlers *Handlers, logger *slog.Logger, cfg *config.Config, metricsRegistry metrics.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	if cfg.Metrics.Enabled {
		r.Use(metrics.PrometheusMiddleware(metricsRegistry, cfg.Metrics.Path))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.HandleHealth)
	r.Get("/ready", handlers.HandleReady)

	if cfg.Metrics.Enabled {
		if handler := metricsRegistry.GetHandler(); handler != nil {
			r.Handle(cfg.Metrics.Path, handler)
		}
	}

	r.Get("/swagger/*", httpswagger.Handler(
		httpswagger.URL(strings.TrimRight(cfg.App.BaseURL, "/")+"/swagger/doc.json"),
	))
	r.Get("/redoc", handleRedoc)

	r.Post("/shorten", handlers.HandleShorten)
	r.Get("/shorten/{code}", handlers.HandleResolve)
	r.Head("/shorten/{code}", handlers.HandleResolve)

	r.Route("/api/mappings", func(r chi.Router) {
		r.Get("/", handlers.HandleListMappings)
		r.Get("/code/{code}", handlers.HandleLookup)
		r.Get("/{id}", handlers.HandleGetMapping)
		r.Delete("/{id}", handlers.HandleDeleteMapping)
	})

	return r
}

func handleRedoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	redocHTML := `<!DOCTYPE html>
<html>
<head>
    <title>Tern API Documentation</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body {
            margin: 0;
            padding: 0;
        }
    </style>
</head>
<body>
    <redoc spec-url='/swagger/doc.json'></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`
	_, _ = w.Write([]byte(redocHTML))
}
