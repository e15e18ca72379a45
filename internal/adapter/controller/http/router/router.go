package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kr1s57/lookupx/internal/adapter/controller/http/handlers"
	"github.com/kr1s57/lookupx/internal/adapter/controller/http/middleware"
	"github.com/kr1s57/lookupx/internal/usecase/lookup"
)

// Config holds router configuration
type Config struct {
	AllowedOrigins []string
	RateLimit      int // requests per minute per client IP on /api, 0 disables
	Logger         *slog.Logger
}

// New builds the HTTP routes of the lookup service
func New(service *lookup.Service, cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.NotFound(handlers.NotFound)

	// Health check and metrics are not rate limited
	r.Get("/health", handlers.HealthCheck(service))
	r.Handle("/metrics", promhttp.Handler())

	lookupHandler := handlers.NewLookupHandler(service)

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}

		r.Post("/lookup", lookupHandler.Lookup)
		r.Post("/lookup/batch", lookupHandler.BatchLookup)
		r.Get("/usage", lookupHandler.Usage)
		r.Get("/cache/stats", lookupHandler.CacheStats)
	})

	return r
}
