// Package config provides configuration types and loading for the
// router.
//
// A route file describes the process (server, logging, tracing,
// metrics), the result cache backend, the middleware registry
// (aliases, groups, global stack) and the route table itself (routes
// and nested route groups).
//
// # Features
//
//   - YAML (.yaml, .yml) and TOML (.toml) route files
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Validation that reports every problem at once
//   - File watching for hot reload
//
// # Registration Order
//
// Routes and groups are decoded into separate lists, so their relative
// position in the file is not kept. At every level the routes of the
// list are registered first, in list order, then the groups, in list
// order, depth first. When two routes match the same request the one
// registered last wins, so a route inside a group takes precedence
// over an identical top-level route whatever the file order.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("routes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.RouterConfig) {
//	    // rebuild the router
//	}, config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := watcher.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer watcher.Stop()
package config
