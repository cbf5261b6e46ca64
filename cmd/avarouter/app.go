package main

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/vyrodovalexey/avarouter/internal/cache"
	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/dispatch"
	"github.com/vyrodovalexey/avarouter/internal/health"
	"github.com/vyrodovalexey/avarouter/internal/middleware"
	"github.com/vyrodovalexey/avarouter/internal/observability"
	"github.com/vyrodovalexey/avarouter/internal/router"
)

// application holds all application components.
type application struct {
	config   *config.RouterConfig
	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	store    cache.Cache
	handlers *dispatch.HandlerRegistry
	health   *health.Checker

	// table is swapped as a whole on reload.
	table atomic.Pointer[routeTable]

	server        *http.Server
	metricsServer *http.Server
}

// routeTable is everything built from the routes of one route file.
type routeTable struct {
	router     *router.Router
	catalog    *middleware.Catalog
	dispatcher *dispatch.Dispatcher
}

func (t *routeTable) close() {
	t.catalog.Close()
}

// newApplication creates the long-lived components and the first
// route table.
func newApplication(cfg *config.RouterConfig, logger observability.Logger) (*application, error) {
	tracer, err := initTracer(cfg.Spec.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	store, err := initCache(cfg.Spec.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result cache: %w", err)
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		metrics:  initMetrics(),
		tracer:   tracer,
		store:    store,
		handlers: newHandlerRegistry(),
	}

	table, err := app.buildRouteTable(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	app.table.Store(table)
	app.health = app.newHealthChecker()
	return app, nil
}

// initMetrics creates the process metrics and registers the collectors
// of every package with them.
func initMetrics() *observability.Metrics {
	metrics := observability.NewMetrics(observability.DefaultNamespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	registry := metrics.Registry()
	router.MustRegisterMetrics(registry)
	middleware.MustRegisterMetrics(registry)
	dispatch.MustRegisterMetrics(registry)
	cache.GetCacheMetrics().MustRegister(registry)
	health.GetHealthMetrics().MustRegister(registry)
	return metrics
}

func initTracer(cfg config.TracingConfig) (*observability.Tracer, error) {
	return observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.SamplingRate,
		Enabled:      cfg.Enabled,
	})
}

// initCache creates the result cache store. Without a cache section
// lookups are not cached.
func initCache(cfg *config.CacheConfig, logger observability.Logger) (cache.Cache, error) {
	if cfg == nil {
		return cache.NewDisabled(), nil
	}
	return cache.New(cfg, cache.WithLogger(logger))
}

// buildRouteTable builds a router, middleware catalog, pipeline
// builder and dispatcher from the routes of cfg. The result cache is
// shared; a table with different routes has a different fingerprint
// and so its own key namespace.
func (app *application) buildRouteTable(cfg *config.RouterConfig) (*routeTable, error) {
	rt := router.New(
		router.WithLogger(app.logger),
		router.WithResultCache(app.store,
			router.WithCacheTTL(cfg.Spec.Cache.GetTTL()),
			router.WithCacheLogger(app.logger),
		),
	)
	if err := loadRoutes(rt, &cfg.Spec); err != nil {
		return nil, err
	}

	catalog := middleware.NewCatalog(middleware.WithCatalogLogger(app.logger))
	builder, err := middleware.NewBuilder(
		middleware.NewRegistryFromConfig(cfg.Spec.Middleware),
		middleware.WithLogger(app.logger),
		middleware.WithResolver(catalog),
		middleware.WithGlobal(toEntries(cfg.Spec.Middleware.Global)...),
		middleware.WithParamsFunc(dispatch.RequestParams),
	)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	d, err := dispatch.New(rt,
		dispatch.WithLogger(app.logger),
		dispatch.WithTracer(app.tracer),
		dispatch.WithBuilder(builder),
		dispatch.WithHandlerResolver(app.handlers),
		dispatch.WithAutoOptions(cfg.Spec.Router.GetAutoOptions()),
	)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	app.logger.Info("route table built",
		observability.Int("routes", len(rt.Routes())),
		observability.String("fingerprint", rt.Fingerprint()),
	)
	return &routeTable{router: rt, catalog: catalog, dispatcher: d}, nil
}

// newHealthChecker reports ready while the current route table has
// routes; a failing cache store only degrades readiness.
func (app *application) newHealthChecker() *health.Checker {
	checker := health.NewChecker(version)
	checker.RegisterCheck("routes", health.RouteTableCheck(func() int {
		return len(app.table.Load().router.Routes())
	}))
	checker.RegisterCheck("cache", health.CacheCheck(app.store))
	return checker
}

// ServeHTTP dispatches through the current route table.
func (app *application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app.table.Load().dispatcher.ServeHTTP(w, r)
}

// handler wraps the application with the process-wide tracing and
// metrics middleware.
func (app *application) handler() http.Handler {
	var h http.Handler = app
	h = observability.MetricsMiddleware(app.metrics)(h)
	h = observability.TracingMiddleware(app.tracer)(h)
	return h
}

// close releases the route table, the cache store and the tracer.
func (app *application) close(ctx context.Context) {
	if table := app.table.Load(); table != nil {
		table.close()
	}
	if err := app.store.Close(); err != nil {
		app.logger.Error("failed to close result cache", observability.Error(err))
	}
	if err := app.tracer.Shutdown(ctx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
	}
}
