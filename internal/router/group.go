package router

import (
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/vyrodovalexey/avarouter/internal/middleware"
)

// Group registers routes under a shared prefix. Host, constraints and
// middleware of a group apply to its routes and nested groups; route
// options override them.
type Group struct {
	router      *Router
	prefix      string
	namePrefix  string
	host        string
	constraints map[string]string
	units       [][]middleware.Entry
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupName prefixes the names of the group's routes.
func WithGroupName(prefix string) GroupOption {
	return func(g *Group) {
		g.namePrefix += prefix
	}
}

// WithGroupHost restricts the group's routes to a host template.
func WithGroupHost(host string) GroupOption {
	return func(g *Group) {
		g.host = host
	}
}

// WithGroupConstraints sets path constraints for the group's routes.
func WithGroupConstraints(constraints map[string]string) GroupOption {
	return func(g *Group) {
		maps.Copy(g.constraints, constraints)
	}
}

// WithGroupMiddleware declares the group's middleware unit.
func WithGroupMiddleware(entries ...middleware.Entry) GroupOption {
	return func(g *Group) {
		last := len(g.units) - 1
		g.units[last] = append(g.units[last], entries...)
	}
}

func newGroup(r *Router, parent *Group, prefix string, opts []GroupOption) *Group {
	g := &Group{
		router:      r,
		constraints: make(map[string]string),
	}
	parentPrefix := ""
	if parent != nil {
		parentPrefix = parent.prefix
		g.namePrefix = parent.namePrefix
		g.host = parent.host
		maps.Copy(g.constraints, parent.constraints)
		g.units = slices.Clone(parent.units)
	}
	// The root group has the empty prefix.
	g.prefix = strings.TrimRight(joinPaths(parentPrefix, prefix), "/")

	// The group's own unit, possibly empty.
	g.units = append(g.units, nil)

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// joinPaths appends a pattern to a prefix with exactly one slash between.
func joinPaths(prefix, pattern string) string {
	prefix = strings.TrimRight(prefix, "/")
	if pattern == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return prefix + "/" + strings.TrimLeft(pattern, "/")
}

// apply sets group defaults on a route before its own options.
func (g *Group) apply(r *Route) {
	r.template = joinPaths(g.prefix, r.template)
	if g.host != "" {
		r.hostTemplate = g.host
	}
	maps.Copy(r.constraints, g.constraints)
	for _, unit := range g.units {
		r.groupUnits = append(r.groupUnits, slices.Clone(unit))
	}
}

// Prefix returns the full path prefix of the group, without a
// trailing slash.
func (g *Group) Prefix() string {
	return g.prefix
}

// Group returns a nested group.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	return newGroup(g.router, g, prefix, opts)
}

// Handle registers a route under the group.
func (g *Group) Handle(methods []string, pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.router.handle(methods, pattern, handler, g, opts)
}

// Get registers a GET (and HEAD) route.
func (g *Group) Get(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle([]string{http.MethodGet}, pattern, handler, opts...)
}

// Post registers a POST route.
func (g *Group) Post(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle([]string{http.MethodPost}, pattern, handler, opts...)
}

// Put registers a PUT route.
func (g *Group) Put(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle([]string{http.MethodPut}, pattern, handler, opts...)
}

// Patch registers a PATCH route.
func (g *Group) Patch(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle([]string{http.MethodPatch}, pattern, handler, opts...)
}

// Delete registers a DELETE route.
func (g *Group) Delete(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle([]string{http.MethodDelete}, pattern, handler, opts...)
}

// Options registers an OPTIONS route.
func (g *Group) Options(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle([]string{http.MethodOptions}, pattern, handler, opts...)
}

// Any registers a route for every standard method.
func (g *Group) Any(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return g.Handle(StandardMethods, pattern, handler, opts...)
}
