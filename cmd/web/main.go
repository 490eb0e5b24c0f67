package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	version       = "1.0.0"
	renderTimeout = 10 * time.Second
	noStore       = "no-store"
)

// dashboardHandler renders the full page for the default criteria of the
// dataset currently loaded.
func dashboardHandler(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	pages := handlers.NewSSEHandlers(analytics, logger)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		page, err := pages.DashboardPage(r.WithContext(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "build dashboard page", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", noStore)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			logger.ErrorContext(ctx, "render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, logger),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func configPath() string {
	path := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML configuration file")
	flag.Parse()
	return *path
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"config", cfg,
	)

	shutdownTelemetry, err := observability.InitTelemetry(cfg.Telemetry, version)
	if err != nil {
		logger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}

	metrics, err := observability.NewPipelineMetrics()
	if err != nil {
		logger.Error("failed to create pipeline metrics", "error", err)
		os.Exit(1)
	}

	loader := services.NewLoader(
		services.WithRowPolicy(services.RowPolicy(cfg.Dataset.RowPolicy)),
		services.WithCacheDir(cfg.Dataset.CacheDir),
		services.WithLoaderLogger(logger),
	)
	analytics := services.NewAnalytics(
		services.WithLoader(loader),
		services.WithMetrics(metrics),
		services.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	start := time.Now()
	err = analytics.LoadFromCSV(ctx, cfg.Dataset.CSVFile)
	cancel()
	if err != nil {
		// A dataset that cannot be loaded is fatal; nothing is served.
		logger.Error("failed to load CSV data", "path", cfg.Dataset.CSVFile, "error", err)
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully",
		"duration", time.Since(start),
		"records", analytics.Dataset().Len(),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	if cfg.Dataset.ReloadInterval > 0 {
		watcher := services.NewWatcher(analytics, cfg.Dataset.ReloadInterval, services.WithWatchLogger(logger))
		watcher.Start(context.Background())
		logger.Info("watching dataset for changes", "interval", cfg.Dataset.ReloadInterval)

		gracefulServer.RegisterShutdownHook("dataset-watcher", func(ctx context.Context) error {
			watcher.Stop()
			return nil
		})
	}

	gracefulServer.RegisterShutdownHook("telemetry", shutdownTelemetry)

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
