package wiring

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ai-agentic-browser/internal/broadcast"
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/httpapi"
	"github.com/ai-agentic-browser/pkg/middleware"
	"github.com/ai-agentic-browser/pkg/observability"
	"github.com/gorilla/mux"
)

// RunServer builds every service and blocks serving the gateway's HTTP
// surface (/snapshot, /alert, /debug/ws, /health) until SIGINT/SIGTERM,
// then shuts down gracefully. Shared by cmd/perpgated and perpgatectl's
// serve subcommand so both start an identical process.
func RunServer(cfg *config.Config) error {
	logger := observability.NewLogger(cfg.Observability)

	metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{
		ServiceName:    "perpgated",
		ServiceVersion: "1.0.0",
		Namespace:      "perpgate",
		Port:           cfg.Observability.MetricsPort,
		Enabled:        true,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := metrics.StartMetricsServer(cfg.Observability.MetricsPort); err != nil {
			logger.Warn(context.Background(), "metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	tracing, err := observability.NewTracingProvider(cfg.Observability)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(context.Background())

	svc, err := Build(context.Background(), cfg, logger, true)
	if err != nil {
		return err
	}
	if cfg.Notify.TelegramBotToken == "" {
		logger.Warn(context.Background(), "no TELEGRAM_BOT_TOKEN configured, alerts will not be delivered", nil)
	}

	hub := broadcast.NewHub(100)
	go hub.Run()

	api := httpapi.New(svc.Ingestor, svc.Pipeline, metrics, logger, cfg.Gateway).WithHub(hub)

	httpMux := http.NewServeMux()
	api.Routes(httpMux, cfg.Security.SharedSecret)

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterCheck("redis", func(ctx context.Context) observability.HealthCheckResult {
		if _, _, err := svc.Store.Get(ctx, "health:ping"); err != nil {
			return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: err.Error()}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	healthServer := observability.NewHealthServer(healthChecker, observability.ServiceInfo{Name: "perpgated", Version: "1.0.0"}, logger)
	healthRouter := mux.NewRouter()
	healthServer.RegisterRoutes(healthRouter)
	httpMux.Handle("/health", healthRouter)
	httpMux.Handle("/health/", healthRouter)

	obsMiddleware := observability.NewObservabilityMiddleware(metrics, logger, observability.MiddlewareConfig{
		ServiceName: "perpgated",
	})

	handler := middleware.Recovery(logger)(
		middleware.Logging(logger)(
			middleware.Tracing("perpgated")(
				middleware.CORS(cfg.Security.CORSAllowedOrigins)(
					middleware.RateLimit(cfg.RateLimit)(
						obsMiddleware.HTTPMiddleware(httpMux),
					),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(context.Background(), "starting perpgated", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(context.Background(), "shutting down perpgated", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
