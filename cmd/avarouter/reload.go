package main

import (
	"context"
	"reflect"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// startConfigWatcher reloads the route table whenever the route file
// changes. A failure to watch is logged and the server keeps running
// with the routes it has.
func startConfigWatcher(
	ctx context.Context,
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, app.reload,
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			app.metrics.RecordReload(false)
			logger.Error("failed to reload route file", observability.Error(err))
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}
	return watcher
}

// reload builds a route table from cfg and swaps it in. Requests in
// flight finish on the table they started with. On error the current
// table stays.
func (app *application) reload(cfg *config.RouterConfig) {
	app.logger.Info("route file changed, reloading",
		observability.Int("routes", cfg.CountRoutes()),
	)

	table, err := app.buildRouteTable(cfg)
	if err != nil {
		app.metrics.RecordReload(false)
		app.logger.Error("failed to build route table, keeping current routes", observability.Error(err))
		return
	}

	warnRestartOnly(app.config, cfg, app.logger)

	old := app.table.Swap(table)
	if old != nil {
		old.close()
	}
	app.metrics.RecordReload(true)
}

// warnRestartOnly logs sections of the route file that only take
// effect on restart.
func warnRestartOnly(current, next *config.RouterConfig, logger observability.Logger) {
	sections := map[string][2]any{
		"server":  {current.Spec.Server, next.Spec.Server},
		"cache":   {current.Spec.Cache, next.Spec.Cache},
		"tracing": {current.Spec.Tracing, next.Spec.Tracing},
		"metrics": {current.Spec.Metrics, next.Spec.Metrics},
		"logging": {current.Spec.Logging, next.Spec.Logging},
	}
	for name, pair := range sections {
		if !reflect.DeepEqual(pair[0], pair[1]) {
			logger.Warn("route file section changed, restart to apply",
				observability.String("section", name),
			)
		}
	}
}
