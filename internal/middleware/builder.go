package middleware

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// Resolver turns a concrete middleware identifier into a Middleware.
type Resolver interface {
	ResolveMiddleware(id string) (Middleware, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(id string) (Middleware, error)

// ResolveMiddleware calls f(id).
func (f ResolverFunc) ResolveMiddleware(id string) (Middleware, error) {
	return f(id)
}

var errUnsupportedRef = errors.New("middleware reference must be a string or a Middleware")

// Builder composes per-route pipelines: global middleware first, then
// each enclosing group from outer to inner, then the route's own. Each
// unit is ordered by descending priority, ties keeping declaration
// order. Built pipelines are cached per declarer ID, so one builder
// serves one route table.
type Builder struct {
	registry   *Registry
	resolver   Resolver
	global     []Entry
	conditions *ConditionCompiler
	params     ParamsFunc
	logger     observability.Logger
	metrics    *MiddlewareMetrics

	mu        sync.RWMutex
	pipelines map[string]http.Handler
	warned    map[string]struct{}
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(logger observability.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithGlobal sets the middleware that runs first on every route.
func WithGlobal(entries ...Entry) BuilderOption {
	return func(b *Builder) {
		b.global = slices.Clone(entries)
	}
}

// WithResolver sets the identifier resolver. Defaults to a Catalog
// with the built-in middleware.
func WithResolver(resolver Resolver) BuilderOption {
	return func(b *Builder) {
		b.resolver = resolver
	}
}

// WithParamsFunc sets how conditions obtain the route parameters of a
// request.
func WithParamsFunc(fn ParamsFunc) BuilderOption {
	return func(b *Builder) {
		b.params = fn
	}
}

// NewBuilder creates a pipeline builder over registry.
func NewBuilder(registry *Registry, opts ...BuilderOption) (*Builder, error) {
	conditions, err := NewConditionCompiler()
	if err != nil {
		return nil, err
	}

	b := &Builder{
		registry:   registry,
		conditions: conditions,
		logger:     observability.NopLogger(),
		metrics:    GetMiddlewareMetrics(),
		pipelines:  make(map[string]http.Handler),
		warned:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.registry == nil {
		b.registry = NewRegistry()
	}
	if b.resolver == nil {
		b.resolver = NewCatalog(WithCatalogLogger(b.logger))
	}
	if b.params == nil {
		b.params = func(*http.Request) map[string]string { return nil }
	}
	return b, nil
}

// Registry returns the registry the builder expands names with.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// stage is one planned pipeline entry after expansion.
type stage struct {
	id          string
	mw          Middleware
	when        string
	unsupported bool
}

func (s stage) label() string {
	if s.mw != nil {
		return "<func>"
	}
	return s.id
}

// Plan returns the ordered stage labels of d's pipeline, outermost
// first. Middleware values appear as "<func>".
func (b *Builder) Plan(d Declarer) []string {
	stages := b.plan(d)
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.label()
	}
	return out
}

func (b *Builder) plan(d Declarer) []stage {
	units := append([][]Entry{b.global}, d.MiddlewareUnits()...)
	excluded := b.excluded(d.ExcludedMiddleware())

	var stages []stage
	for _, unit := range units {
		sorted := slices.Clone(unit)
		slices.SortStableFunc(sorted, func(x, y Entry) int {
			return cmp.Compare(y.Priority, x.Priority)
		})

		for _, e := range sorted {
			switch ref := e.Ref.(type) {
			case string:
				for _, id := range b.registry.Resolve(ref) {
					if _, skip := excluded[id]; skip {
						continue
					}
					stages = append(stages, stage{id: id, when: e.When})
				}
			case Middleware:
				stages = append(stages, stage{mw: ref, when: e.When})
			case func(http.Handler) http.Handler:
				stages = append(stages, stage{mw: ref, when: e.When})
			default:
				stages = append(stages, stage{id: e.String(), when: e.When, unsupported: true})
			}
		}
	}
	return stages
}

// excluded expands exclusion names the same way declarations are
// expanded, so excluding a group removes each of its members.
func (b *Builder) excluded(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		out[name] = struct{}{}
		for _, id := range b.registry.Resolve(name) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Handler returns d's pipeline around handler, building it on first
// use. Later calls for the same ID return the cached pipeline and
// ignore handler.
func (b *Builder) Handler(d Declarer, handler http.Handler) http.Handler {
	id := d.ID()

	b.mu.RLock()
	h, ok := b.pipelines[id]
	b.mu.RUnlock()
	if ok {
		return h
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.pipelines[id]; ok {
		return h
	}

	h = b.build(d, handler)
	b.pipelines[id] = h
	b.metrics.pipelinesBuilt.Inc()
	return h
}

// build folds stages from the innermost outward so the first stage
// runs first.
func (b *Builder) build(d Declarer, handler http.Handler) http.Handler {
	stages := b.plan(d)

	h := handler
	for i := len(stages) - 1; i >= 0; i-- {
		s := stages[i]

		mw := s.mw
		if mw == nil {
			mw = b.resolve(d, s)
		}
		if mw == nil {
			continue
		}

		if s.when == "" {
			h = mw(h)
			continue
		}
		h = b.conditional(d, s, mw, h)
	}
	return h
}

// resolve returns nil for identifiers the resolver cannot serve; the
// stage then passes straight through.
func (b *Builder) resolve(d Declarer, s stage) Middleware {
	id := s.id
	err := errUnsupportedRef
	if !s.unsupported {
		var mw Middleware
		mw, err = b.resolver.ResolveMiddleware(id)
		if err == nil && mw != nil {
			return mw
		}
	}

	b.metrics.unresolvedTotal.WithLabelValues(id).Inc()
	if _, done := b.warned[id]; !done {
		b.warned[id] = struct{}{}
		b.logger.Warn("middleware not resolvable, using pass-through",
			observability.String("middleware", id),
			observability.String("route_id", d.ID()),
			observability.Error(err),
		)
	}
	return nil
}

// conditional runs mw only when the stage condition holds. A condition
// that fails to compile or evaluate does not skip the stage.
func (b *Builder) conditional(d Declarer, s stage, mw Middleware, next http.Handler) http.Handler {
	wrapped := mw(next)

	cond, err := b.conditions.Compile(s.when)
	if err != nil {
		b.logger.Error("invalid middleware condition, stage always runs",
			observability.String("middleware", s.label()),
			observability.String("route_id", d.ID()),
			observability.Error(err),
		)
		return wrapped
	}

	label := s.label()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := cond.Eval(r, b.params(r))
		if err != nil {
			b.metrics.conditionErrors.WithLabelValues(label).Inc()
			b.logger.Debug("middleware condition failed",
				observability.String("middleware", label),
				observability.String("when", cond.Expression()),
				observability.Error(err),
			)
			ok = true
		}

		if !ok {
			b.metrics.conditionSkipped.WithLabelValues(label).Inc()
			next.ServeHTTP(w, r)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}

// Chain folds middleware around h; the first argument runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
