// Package observability provides logging, metrics, and tracing
// for the router process.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("route registered",
//	    observability.String("pattern", "/users/{id}"),
//	    observability.Uint64("id", 7),
//	)
//
// # Metrics
//
// Metrics owns a Prometheus registry. Package-level collectors from
// the router, cache and dispatch packages are attached to it with
// RegisterCollector so one endpoint serves them all:
//
//	metrics := observability.NewMetrics("avarouter")
//	http.Handle("/metrics", metrics.Handler())
//
// # Tracing
//
// NewTracer installs an OpenTelemetry provider exporting over OTLP
// gRPC. When disabled, spans created by the other packages go to the
// global no-op provider.
package observability
