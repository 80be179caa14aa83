// Package api wires the sentinel server's HTTP surface: ingestion,
// dashboard/admin read endpoints, and the Prometheus metrics endpoint.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storewatch/sentinel/internal/alert"
	"github.com/storewatch/sentinel/internal/api/handler"
	apimiddleware "github.com/storewatch/sentinel/internal/api/middleware"
	"github.com/storewatch/sentinel/internal/cache"
	"github.com/storewatch/sentinel/internal/config"
	"github.com/storewatch/sentinel/internal/emailconfig"
	"github.com/storewatch/sentinel/internal/ingest"
	"github.com/storewatch/sentinel/internal/job"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/repository"
)

// Dependencies bundles everything the router needs to construct its
// handlers.
type Dependencies struct {
	Registry   *liveness.Registry
	Dispatcher *alert.Dispatcher
	Store      repository.Store
	Recipients *emailconfig.Config
	Sweeper    *job.HealthSweeperJob
	Scheduler  *job.Scheduler
	Cache      cache.Store
	StartedAt  time.Time
}

// NewRouter builds the sentinel server's HTTP handler tree.
func NewRouter(logger *slog.Logger, deps Dependencies, metricsCfg config.MetricsConfig, corsCfg config.CORSConfig) http.Handler {
	r := chi.NewRouter()

	mCfg := apimiddleware.DefaultMetricsConfig()
	if metricsCfg.Namespace != "" {
		mCfg.Namespace = metricsCfg.Namespace
	}
	if metricsCfg.Subsystem != "" {
		mCfg.Subsystem = metricsCfg.Subsystem
	}
	if len(metricsCfg.Buckets) > 0 {
		mCfg.Buckets = metricsCfg.Buckets
	}

	var metrics *apimiddleware.Metrics
	if metricsCfg.Enabled {
		metrics = apimiddleware.NewMetrics(mCfg)
	}

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
		chiMiddleware.Recoverer,
	)

	if metricsCfg.Enabled {
		r.Use(metrics.Middleware(mCfg))
	}

	origins := corsCfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(apimiddleware.StructuredLogger(apimiddleware.LoggingConfig{
		Logger:    logger,
		SkipPaths: []string{"/health", "/metrics"},
	}))

	ingestHandler := ingest.New(deps.Registry, deps.Dispatcher, deps.Store, logger)
	dashboardHandler := handler.NewDashboardHandler(deps.Registry, deps.Cache)
	storeHandler := handler.NewStoreHandler(deps.Registry, deps.Store.Stores())
	alertsHandler := handler.NewAlertsHandler(deps.Store.Alerts())
	healthHandler := handler.NewHealthHandler(deps.Registry, deps.StartedAt, deps.Scheduler)
	adminHandler := handler.NewAdminHandler(deps.Sweeper, deps.Dispatcher, deps.Registry, deps.Recipients, deps.Cache)

	r.Post("/heartbeat", ingestHandler.Live)
	r.Post("/heartbeat/buffered", ingestHandler.Buffered)

	r.Get("/dashboard", dashboardHandler.ServeHTTP)
	r.Get("/store/{id}", storeHandler.ServeHTTP)
	r.Get("/alerts", alertsHandler.ServeHTTP)
	r.Get("/alerts/{id}", alertsHandler.ForStore)

	r.Get("/trigger-health-check", adminHandler.TriggerSweep)
	r.Get("/test-email/{id}", adminHandler.TestAlert)
	r.Get("/config/email", adminHandler.EmailConfig)
	r.Post("/config/reload", adminHandler.ReloadConfig)

	r.Get("/health", healthHandler.ServeHTTP)

	if metricsCfg.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}
