package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/vyrodovalexey/avarouter/internal/cache"
	"github.com/vyrodovalexey/avarouter/internal/observability"
	"github.com/vyrodovalexey/avarouter/internal/util"
)

// ErrDuplicateRouteName is returned when a route name is already taken.
var ErrDuplicateRouteName = errors.New("duplicate route name")

// Router is the route table. Routes may be registered at any time;
// lookups work on an immutable snapshot that is rebuilt on the first
// lookup after a registration, so steady-state lookups take no lock.
type Router struct {
	logger     observability.Logger
	store      cache.Cache
	cacheOpts  []CachedSelectorOption
	instanceID string

	mu     sync.Mutex
	routes []*Route
	byName map[string]*Route
	nextID uint64

	dirty atomic.Bool
	snap  atomic.Pointer[snapshot]
}

// snapshot is an immutable view of the route table.
type snapshot struct {
	manager     *Manager
	selector    Selector
	routes      []*Route
	byID        map[string]*Route
	methods     []string
	fingerprint string
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithResultCache puts a result cache in front of the matchers.
func WithResultCache(store cache.Cache, opts ...CachedSelectorOption) Option {
	return func(r *Router) {
		r.store = store
		r.cacheOpts = opts
	}
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{
		logger:     observability.NopLogger(),
		instanceID: uuid.NewString(),
		byName:     make(map[string]*Route),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.dirty.Store(true)
	return r
}

// InstanceID returns a random identifier of this route table, for logs.
func (r *Router) InstanceID() string {
	return r.instanceID
}

// Handle registers a route. The pattern and options are validated
// immediately; on error nothing is registered.
func (r *Router) Handle(methods []string, pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.handle(methods, pattern, handler, nil, opts)
}

func (r *Router) handle(
	methods []string,
	pattern string,
	handler any,
	group *Group,
	opts []RouteOption,
) (*Route, error) {
	route := newRoute(methods, pattern, handler)
	if group != nil {
		group.apply(route)
	}
	for _, opt := range opts {
		opt(route)
	}
	if group != nil && route.name != "" {
		route.name = group.namePrefix + route.name
	}

	if err := route.compile(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if route.name != "" {
		if _, exists := r.byName[route.name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRouteName, route.name)
		}
		r.byName[route.name] = route
	}

	r.nextID++
	route.id = strconv.FormatUint(r.nextID, 10)
	r.routes = append(r.routes, route)
	r.dirty.Store(true)

	return route, nil
}

// Get registers a GET (and HEAD) route.
func (r *Router) Get(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle([]string{http.MethodGet}, pattern, handler, opts...)
}

// Post registers a POST route.
func (r *Router) Post(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle([]string{http.MethodPost}, pattern, handler, opts...)
}

// Put registers a PUT route.
func (r *Router) Put(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle([]string{http.MethodPut}, pattern, handler, opts...)
}

// Patch registers a PATCH route.
func (r *Router) Patch(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle([]string{http.MethodPatch}, pattern, handler, opts...)
}

// Delete registers a DELETE route.
func (r *Router) Delete(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle([]string{http.MethodDelete}, pattern, handler, opts...)
}

// Options registers an OPTIONS route.
func (r *Router) Options(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle([]string{http.MethodOptions}, pattern, handler, opts...)
}

// Any registers a route for every standard method.
func (r *Router) Any(pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle(StandardMethods, pattern, handler, opts...)
}

// Match registers a route for the given methods.
func (r *Router) Match(methods []string, pattern string, handler any, opts ...RouteOption) (*Route, error) {
	return r.Handle(methods, pattern, handler, opts...)
}

// Group returns a group whose routes share a path prefix and settings.
func (r *Router) Group(prefix string, opts ...GroupOption) *Group {
	return newGroup(r, nil, prefix, opts)
}

// current returns the snapshot, rebuilding it if routes were added.
func (r *Router) current() *snapshot {
	if s := r.snap.Load(); s != nil && !r.dirty.Load() {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.snap.Load(); s != nil && !r.dirty.Load() {
		return s
	}

	s := r.build()
	r.snap.Store(s)
	r.dirty.Store(false)
	return s
}

// build must be called with mu held.
func (r *Router) build() *snapshot {
	s := &snapshot{
		manager: NewManager(),
		routes:  slices.Clone(r.routes),
		byID:    make(map[string]*Route, len(r.routes)),
	}

	methods := make(map[string]struct{})
	for _, route := range s.routes {
		s.manager.Add(route)
		s.byID[route.id] = route
		for _, m := range route.methods {
			methods[m] = struct{}{}
		}
	}
	for m := range methods {
		s.methods = append(s.methods, m)
	}
	sort.Strings(s.methods)

	s.fingerprint = fingerprint(s.routes)
	s.selector = s.manager
	if r.store != nil {
		opts := append([]CachedSelectorOption{WithCacheLogger(r.logger)}, r.cacheOpts...)
		s.selector = NewCachedSelector(s.manager, r.store, s.route, s.fingerprint, opts...)
	}

	m := getRouterMetrics()
	m.snapshotRebuilds.Inc()
	m.routes.Set(float64(len(s.routes)))

	r.logger.Debug("route table snapshot built",
		observability.String("instance", r.instanceID),
		observability.Int("routes", len(s.routes)),
		observability.String("fingerprint", s.fingerprint))

	return s
}

func (s *snapshot) route(id string) *Route {
	return s.byID[id]
}

// fingerprint hashes everything that affects matching, in
// registration order.
func fingerprint(routes []*Route) string {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.WriteString("\x00")
	}

	for _, route := range routes {
		write(route.id)
		for _, m := range route.methods {
			write(m)
		}
		write(route.path.Raw())
		writeSorted(write, route.constraints)
		write(route.hostTemplate)
		writeSorted(write, route.hostConstraints)
		for _, p := range route.ports {
			write(strconv.Itoa(p))
		}
		write(route.portParam)
		for _, sch := range route.schemes {
			write(sch)
		}
		write(route.schemeParam)
		writeSorted(write, route.defaults)
		write("\x01")
	}

	return strconv.FormatUint(h.Sum64(), 16)
}

func writeSorted(write func(string), m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k)
		write(m[k])
	}
}

// resolve returns the first candidate for the method and path whose
// host, port and scheme constraints accept rc. With record set, the
// strategy of the selected candidate is counted.
func (s *snapshot) resolve(ctx context.Context, rc RequestContext, record bool) (Match, bool) {
	for _, candidate := range s.selector.FindAll(ctx, rc.Method, rc.Path) {
		ctxParams, ok := candidate.Route.matchContext(rc)
		if !ok {
			continue
		}
		if record {
			s.manager.RecordSelected(candidate)
		}
		return Match{
			Route:  candidate.Route,
			Params: slices.Concat(candidate.Params, ctxParams),
		}, true
	}
	return Match{}, false
}

// allowedMethods returns, sorted, every method other than except
// under which rc would match.
func (s *snapshot) allowedMethods(ctx context.Context, rc RequestContext, except string) []string {
	var allowed []string
	for _, method := range s.methods {
		if method == except {
			continue
		}
		alt := rc
		alt.Method = method
		if _, ok := s.resolve(ctx, alt, false); ok {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// Lookup resolves rc to a route. It returns a *util.MethodNotAllowedError
// when the path matches only under other methods, and a
// *util.RouteNotFoundError otherwise.
func (r *Router) Lookup(ctx context.Context, rc RequestContext) (Match, error) {
	rc = rc.normalized()
	s := r.current()

	if m, ok := s.resolve(ctx, rc, true); ok {
		return m, nil
	}
	if allowed := s.allowedMethods(ctx, rc, rc.Method); len(allowed) > 0 {
		return Match{}, util.NewMethodNotAllowedError(rc.Method, rc.Path, allowed)
	}
	return Match{}, util.NewRouteNotFoundError(rc.Method, rc.Path, rc.Host)
}

// LookupRequest resolves an HTTP request.
func (r *Router) LookupRequest(req *http.Request) (Match, error) {
	return r.Lookup(req.Context(), NewRequestContext(req))
}

// AllowedMethods returns every method under which rc's path, host, port
// and scheme match a route, sorted.
func (r *Router) AllowedMethods(ctx context.Context, rc RequestContext) []string {
	return r.current().allowedMethods(ctx, rc.normalized(), "")
}

// Routes returns the routes in registration order.
func (r *Router) Routes() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.routes)
}

// Route returns the route with the given identifier, or nil.
func (r *Router) Route(id string) *Route {
	return r.current().route(id)
}

// RouteByName returns the named route, or nil.
func (r *Router) RouteByName(name string) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// Methods returns every registered method, sorted.
func (r *Router) Methods() []string {
	return slices.Clone(r.current().methods)
}

// Fingerprint returns the hash of the current route table. Tables
// with identical registrations share a fingerprint.
func (r *Router) Fingerprint() string {
	return r.current().fingerprint
}

// Stats describes the route table.
type Stats struct {
	Routes      int
	Fingerprint string
	Manager     ManagerStats
}

// Stats returns route table statistics.
func (r *Router) Stats() Stats {
	s := r.current()
	return Stats{
		Routes:      len(s.routes),
		Fingerprint: s.fingerprint,
		Manager:     s.manager.Stats(),
	}
}
