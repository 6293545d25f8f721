package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"olist-dashboard/internal/analytics"
	"olist-dashboard/internal/config"
	"olist-dashboard/internal/dataset"
	"olist-dashboard/internal/middleware"
	"olist-dashboard/internal/observability"
	"olist-dashboard/internal/server"
	"olist-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	dataLoadTimeout = 60 * time.Second
	cacheMaxAge     = "public, max-age=300"
)

func dashboardHandler(showRules bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(showRules).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application", "version", "1.0.0", "orders_csv", cfg.Data.OrdersCSV)

	store := dataset.NewStore(dataset.NewLoader(logger, cfg.Data.CacheDir))
	service := analytics.NewService(store, logger)

	ctx, cancel := context.WithTimeout(context.Background(), dataLoadTimeout)
	defer cancel()

	if err := service.LoadOrders(ctx, cfg.Data.OrdersCSV); err != nil {
		// Missing input is a user-facing condition, not a crash: the
		// upstream analysis has to run before the dashboard can.
		logger.Error("orders data unavailable, run the upstream analysis first",
			"path", cfg.Data.OrdersCSV,
			"error", err,
		)
		os.Exit(1)
	}

	if cfg.Data.RulesCSV != "" {
		if err := service.LoadRules(ctx, cfg.Data.RulesCSV); err != nil {
			logger.Error("rules data unavailable, run the upstream analysis first",
				"path", cfg.Data.RulesCSV,
				"error", err,
			)
			os.Exit(1)
		}
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(service.HasRules()),
	}

	srv := server.NewServer(service, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service")
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
