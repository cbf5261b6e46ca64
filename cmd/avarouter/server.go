package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/health"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

const readHeaderTimeout = 5 * time.Second

// run serves until SIGINT or SIGTERM and then shuts down gracefully.
func run(app *application, configPath string, logger observability.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.server = newServer(app.config.Spec.Server, app.handler())
	go serve(app.server, "http", logger)

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(ctx, app, configPath, logger)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdown(app, watcher, logger)
}

func newServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout.Duration(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout.Duration(),
		IdleTimeout:       cfg.IdleTimeout.Duration(),
	}
}

func serve(server *http.Server, name string, logger observability.Logger) {
	logger.Info("starting server",
		observability.String("server", name),
		observability.String("address", server.Addr),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error",
			observability.String("server", name),
			observability.Error(err),
		)
		// Nothing is served without the main listener.
		if name == "http" {
			os.Exit(1)
		}
	}
}

// newMetricsServer serves Prometheus metrics and the health probes on
// their own listener.
func newMetricsServer(cfg config.MetricsConfig, metrics *observability.Metrics, checker *health.Checker) *http.Server {
	path := cfg.Path
	if path == "" {
		path = config.DefaultMetricsPath
	}
	addr := cfg.Address
	if addr == "" {
		addr = config.DefaultMetricsAddress
	}

	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.Handle("/healthz", checker.HealthHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	mux.Handle("/livez", checker.LivenessHandler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      10 * time.Second,
	}
}

// startMetricsServerIfEnabled starts the metrics server if enabled.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	if !app.config.Spec.Metrics.Enabled {
		return
	}
	app.metricsServer = newMetricsServer(app.config.Spec.Metrics, app.metrics, app.health)
	go serve(app.metricsServer, "metrics", logger)
}

// shutdown stops accepting requests, drains in-flight ones and
// releases the application.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	timeout := app.config.Spec.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Shutdown(ctx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	app.close(ctx)
	logger.Info("avarouter stopped")
}
