package dispatch

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avarouter/internal/middleware"
	"github.com/vyrodovalexey/avarouter/internal/observability"
	"github.com/vyrodovalexey/avarouter/internal/router"
	"github.com/vyrodovalexey/avarouter/internal/util"
)

// outcomeError labels dispatches that ended in an internal error.
const outcomeError = "error"

// Observer is notified of every state a request enters.
type Observer func(r *http.Request, s State)

// Dispatcher serves HTTP requests from a route table. A dispatcher and
// its pipeline builder belong to one router; build a new pair when the
// route table is replaced.
type Dispatcher struct {
	router           *router.Router
	builder          *middleware.Builder
	handlers         HandlerResolver
	logger           observability.Logger
	tracer           *observability.Tracer
	metrics          *dispatchMetrics
	notFound         http.Handler
	methodNotAllowed http.Handler
	autoOptions      bool
	observer         Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger observability.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTracer sets the tracer the dispatch span is started with.
func WithTracer(tracer *observability.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithBuilder sets the pipeline builder. By default the dispatcher
// creates one with an empty registry and the built-in middleware.
func WithBuilder(builder *middleware.Builder) Option {
	return func(d *Dispatcher) {
		d.builder = builder
	}
}

// WithHandlerResolver sets how route handler references are resolved.
// Defaults to an empty HandlerRegistry.
func WithHandlerResolver(resolver HandlerResolver) Option {
	return func(d *Dispatcher) {
		d.handlers = resolver
	}
}

// WithNotFoundHandler replaces the JSON 404 response.
func WithNotFoundHandler(h http.Handler) Option {
	return func(d *Dispatcher) {
		d.notFound = h
	}
}

// WithMethodNotAllowedHandler replaces the JSON 405 response. The Allow
// header is already set when h runs.
func WithMethodNotAllowedHandler(h http.Handler) Option {
	return func(d *Dispatcher) {
		d.methodNotAllowed = h
	}
}

// WithAutoOptions controls whether OPTIONS requests for paths with no
// OPTIONS route are answered with 204 and an Allow header. Enabled by
// default.
func WithAutoOptions(enabled bool) Option {
	return func(d *Dispatcher) {
		d.autoOptions = enabled
	}
}

// WithObserver registers a callback for state transitions.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// RequestParams returns the route parameters bound to r. It is the
// middleware.ParamsFunc dispatch-aware builders use for conditions.
func RequestParams(r *http.Request) map[string]string {
	return router.ParamsFromContext(r.Context()).Map()
}

// New creates a dispatcher for rt.
func New(rt *router.Router, opts ...Option) (*Dispatcher, error) {
	if rt == nil {
		return nil, errors.New("router is required")
	}

	d := &Dispatcher{
		router:           rt,
		logger:           observability.NopLogger(),
		tracer:           observability.NopTracer(),
		metrics:          getDispatchMetrics(),
		notFound:         defaultNotFound,
		methodNotAllowed: defaultMethodNotAllowed,
		autoOptions:      true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.handlers == nil {
		d.handlers = NewHandlerRegistry()
	}
	if d.builder == nil {
		builder, err := middleware.NewBuilder(middleware.NewRegistry(),
			middleware.WithLogger(d.logger),
			middleware.WithParamsFunc(RequestParams),
		)
		if err != nil {
			return nil, err
		}
		d.builder = builder
	}
	return d, nil
}

// Router returns the route table the dispatcher serves.
func (d *Dispatcher) Router() *router.Router {
	return d.router
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = d.Dispatch(w, r)
}

// Dispatch serves r and returns the final state. NotFound and
// MethodNotAllowed come with the matching *util error after the
// response was written. Other errors mean the request matched but its
// handler could not be resolved; a 500 was written.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request) (State, error) {
	start := time.Now()

	ctx, span := d.tracer.StartSpan(r.Context(), "router.dispatch",
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()

	state, err := d.dispatch(w, r.WithContext(ctx), span)

	outcome := state.String()
	if !state.Terminal() {
		outcome = outcomeError
	}
	d.metrics.observe(outcome, time.Since(start))
	span.SetAttributes(attribute.String("router.outcome", outcome))
	if outcome == outcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return state, err
}

func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, span trace.Span) (State, error) {
	d.enter(r, StateUnmatched)

	rc := router.NewRequestContext(r)
	match, err := d.router.Lookup(r.Context(), rc)
	if err != nil {
		return d.unmatched(w, r, rc, err)
	}

	route := match.Route
	span.SetAttributes(
		attribute.String("router.route_id", route.ID()),
		attribute.String("http.route", route.Pattern()),
	)

	r = bind(r, match)
	d.enter(r, StateMatched)

	handler, err := d.handlers.ResolveHandler(route.Handler())
	if err != nil {
		d.logger.Error("failed to resolve route handler",
			observability.String("route_id", route.ID()),
			observability.String("route", route.Label()),
			observability.Error(err),
		)
		writeInternalError(w)
		return StateMatched, err
	}

	pipeline := d.builder.Handler(route, handler)
	d.enter(r, StatePiped)
	pipeline.ServeHTTP(w, r)

	d.enter(r, StateResponded)
	return StateResponded, nil
}

func (d *Dispatcher) unmatched(
	w http.ResponseWriter,
	r *http.Request,
	rc router.RequestContext,
	err error,
) (State, error) {
	var mna *util.MethodNotAllowedError
	if !errors.As(err, &mna) {
		d.enter(r, StateNotFound)
		d.logger.Debug("no route found",
			observability.String("method", rc.Method),
			observability.String("path", rc.Path),
			observability.String("host", rc.Host),
		)
		d.notFound.ServeHTTP(w, r)
		return StateNotFound, err
	}

	if d.autoOptions && rc.Method == http.MethodOptions {
		w.Header().Set(headerAllow, allowHeader(withOptions(mna.Allowed)))
		w.WriteHeader(http.StatusNoContent)
		d.enter(r, StateResponded)
		return StateResponded, nil
	}

	d.enter(r, StateMethodNotAllowed)
	w.Header().Set(headerAllow, allowHeader(mna.Allowed))
	d.methodNotAllowed.ServeHTTP(w, r)
	return StateMethodNotAllowed, err
}

func (d *Dispatcher) enter(r *http.Request, s State) {
	if d.observer != nil {
		d.observer(r, s)
	}
}

// bind exposes the match to the pipeline: as path values, as router
// params, and as the route label for logs and metrics.
func bind(r *http.Request, match router.Match) *http.Request {
	for _, p := range match.Params {
		r.SetPathValue(p.Key, p.Value)
	}

	label := match.Route.Label()
	ctx := router.WithParams(r.Context(), match.Params)
	ctx = observability.ContextWithRoute(ctx, label)
	ctx = withRoute(ctx, match.Route)
	observability.RecordRoute(ctx, label)
	return r.WithContext(ctx)
}

func withOptions(methods []string) []string {
	if slices.Contains(methods, http.MethodOptions) {
		return methods
	}
	out := append(slices.Clone(methods), http.MethodOptions)
	slices.Sort(out)
	return out
}

type routeContextKey struct{}

func withRoute(ctx context.Context, route *router.Route) context.Context {
	return context.WithValue(ctx, routeContextKey{}, route)
}

// RouteFromContext returns the route the dispatcher matched, or nil.
func RouteFromContext(ctx context.Context) *router.Route {
	route, _ := ctx.Value(routeContextKey{}).(*router.Route)
	return route
}
