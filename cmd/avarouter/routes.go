package main

import (
	"fmt"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/middleware"
	"github.com/vyrodovalexey/avarouter/internal/router"
)

// registrar is the registration surface shared by routers and groups.
type registrar interface {
	Handle(methods []string, pattern string, handler any, opts ...router.RouteOption) (*router.Route, error)
	Group(prefix string, opts ...router.GroupOption) *router.Group
}

// loadRoutes registers the routes of spec, then its groups, each in
// list order; groups recurse the same way. A group route therefore
// shadows an identical top-level route. Handlers are registered by
// name and resolved at dispatch.
func loadRoutes(r registrar, spec *config.RouterSpec) error {
	for i := range spec.Routes {
		if err := addRoute(r, &spec.Routes[i]); err != nil {
			return fmt.Errorf("spec.routes[%d]: %w", i, err)
		}
	}
	for i := range spec.Groups {
		if err := addGroup(r, &spec.Groups[i]); err != nil {
			return fmt.Errorf("spec.groups[%d]: %w", i, err)
		}
	}
	return nil
}

func addGroup(parent registrar, cfg *config.GroupConfig) error {
	var opts []router.GroupOption
	if cfg.Name != "" {
		opts = append(opts, router.WithGroupName(cfg.Name))
	}
	if cfg.Host != "" {
		opts = append(opts, router.WithGroupHost(cfg.Host))
	}
	if len(cfg.Constraints) > 0 {
		opts = append(opts, router.WithGroupConstraints(cfg.Constraints))
	}
	if len(cfg.Middleware) > 0 {
		opts = append(opts, router.WithGroupMiddleware(toEntries(cfg.Middleware)...))
	}

	g := parent.Group(cfg.Prefix, opts...)
	for i := range cfg.Routes {
		if err := addRoute(g, &cfg.Routes[i]); err != nil {
			return fmt.Errorf("routes[%d]: %w", i, err)
		}
	}
	for i := range cfg.Groups {
		if err := addGroup(g, &cfg.Groups[i]); err != nil {
			return fmt.Errorf("groups[%d]: %w", i, err)
		}
	}
	return nil
}

func addRoute(r registrar, cfg *config.RouteConfig) error {
	_, err := r.Handle(cfg.Methods, cfg.Path, cfg.Handler, routeOptions(cfg)...)
	return err
}

func routeOptions(cfg *config.RouteConfig) []router.RouteOption {
	var opts []router.RouteOption
	if cfg.Name != "" {
		opts = append(opts, router.WithName(cfg.Name))
	}
	if len(cfg.Constraints) > 0 {
		opts = append(opts, router.WithConstraints(cfg.Constraints))
	}
	if cfg.Host != "" {
		opts = append(opts, router.WithHost(cfg.Host))
	}
	if len(cfg.HostConstraints) > 0 {
		opts = append(opts, router.WithHostConstraints(cfg.HostConstraints))
	}
	if len(cfg.Ports) > 0 {
		opts = append(opts, router.WithPort(cfg.Ports...))
	}
	if cfg.PortParam != "" {
		opts = append(opts, router.WithPortParam(cfg.PortParam))
	}
	if len(cfg.Schemes) > 0 {
		opts = append(opts, router.WithScheme(cfg.Schemes...))
	}
	if len(cfg.Defaults) > 0 {
		opts = append(opts, router.WithDefaults(cfg.Defaults))
	}
	if len(cfg.Middleware) > 0 {
		opts = append(opts, router.WithMiddleware(toEntries(cfg.Middleware)...))
	}
	if len(cfg.WithoutMiddleware) > 0 {
		opts = append(opts, router.WithoutMiddleware(cfg.WithoutMiddleware...))
	}
	return opts
}

func toEntries(in []config.MiddlewareEntry) []middleware.Entry {
	out := make([]middleware.Entry, 0, len(in))
	for _, e := range in {
		out = append(out, middleware.Entry{Ref: e.Ref, Priority: e.Priority, When: e.When})
	}
	return out
}
