package middleware

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vyrodovalexey/avarouter/internal/observability"
	"github.com/vyrodovalexey/avarouter/internal/util"
)

// ErrUnknownMiddleware is returned for identifiers with no factory.
var ErrUnknownMiddleware = errors.New("unknown middleware")

// Factory builds a middleware from the argument part of an identifier,
// the text after the first ':' ("" when absent).
type Factory func(arg string) (Middleware, error)

// Catalog resolves identifiers of the form "name" or "name:arg" to
// middleware. Instances are created once per identifier and shared by
// every pipeline that uses it, so "ratelimit:10:20" on two routes
// draws from one bucket.
type Catalog struct {
	logger    observability.Logger
	extractor *ClientIPExtractor

	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Middleware
	limiters  []*RateLimiter
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the logger handed to built-in middleware.
func WithCatalogLogger(logger observability.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithTrustedProxies sets the proxies whose X-Forwarded-For is trusted
// when logging and rate limiting by client address.
func WithTrustedProxies(proxies ...string) CatalogOption {
	return func(c *Catalog) {
		c.extractor = NewClientIPExtractor(proxies)
	}
}

// NewCatalog creates a catalog with the built-in middleware:
//
//	requestid
//	recovery
//	logging
//	nocache
//	ratelimit:<rps>:<burst>[:client]
//	timeout:<duration>
//	headers:<name>=<value>[,<name>=<value>...]
//	cors[:<origin>[,<origin>...]]
//	bodylimit:<bytes>
//	circuitbreaker:<threshold>:<timeout>
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		logger:    observability.NopLogger(),
		extractor: NewClientIPExtractor(nil),
		factories: make(map[string]Factory),
		instances: make(map[string]Middleware),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Register("requestid", c.noArg(RequestID))
	c.Register("recovery", c.noArg(func() Middleware { return Recovery(c.logger) }))
	c.Register("logging", c.noArg(func() Middleware { return Logging(c.logger, c.extractor) }))
	c.Register("nocache", c.noArg(NoCache))
	c.Register("ratelimit", c.rateLimit)
	c.Register("timeout", c.timeout)
	c.Register("headers", headers)
	c.Register("cors", cors)
	c.Register("bodylimit", c.bodyLimit)
	c.Register("circuitbreaker", c.circuitBreaker)
	return c
}

// Register adds or replaces the factory for name.
func (c *Catalog) Register(name string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
}

// Provide registers an already-built middleware under a full
// identifier.
func (c *Catalog) Provide(id string, mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[id] = mw
}

// Names returns the registered factory names, sorted.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.factories))
}

// ResolveMiddleware implements Resolver.
func (c *Catalog) ResolveMiddleware(id string) (Middleware, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mw, ok := c.instances[id]; ok {
		return mw, nil
	}

	name, arg, _ := strings.Cut(id, ":")
	factory, ok := c.factories[name]
	if !ok {
		return nil, util.NewHandlerResolutionError(id, ErrUnknownMiddleware)
	}

	mw, err := factory(arg)
	if err != nil {
		return nil, util.NewHandlerResolutionError(id, err)
	}
	c.instances[id] = mw
	return mw, nil
}

// Close stops background work of the middleware the catalog created.
func (c *Catalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rl := range c.limiters {
		rl.Stop()
	}
	c.limiters = nil
}

func (c *Catalog) noArg(build func() Middleware) Factory {
	return func(arg string) (Middleware, error) {
		if arg != "" {
			return nil, fmt.Errorf("takes no argument, got %q", arg)
		}
		return build(), nil
	}
}

// rateLimit is called with c.mu held.
func (c *Catalog) rateLimit(arg string) (Middleware, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("expected <rps>:<burst>[:client], got %q", arg)
	}

	rps, err := strconv.Atoi(parts[0])
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid rps %q", parts[0])
	}
	burst, err := strconv.Atoi(parts[1])
	if err != nil || burst <= 0 {
		return nil, fmt.Errorf("invalid burst %q", parts[1])
	}

	perClient := false
	if len(parts) == 3 {
		if parts[2] != "client" {
			return nil, fmt.Errorf("unknown rate limit scope %q", parts[2])
		}
		perClient = true
	}

	rl := NewRateLimiter(rps, burst, perClient,
		WithRateLimiterLogger(c.logger),
		WithRateLimiterExtractor(c.extractor),
	)
	if perClient {
		rl.StartAutoCleanup()
		c.limiters = append(c.limiters, rl)
	}
	return RateLimit(rl), nil
}

func (c *Catalog) timeout(arg string) (Middleware, error) {
	d, err := time.ParseDuration(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", d)
	}
	return Timeout(d, c.logger), nil
}

func (c *Catalog) bodyLimit(arg string) (Middleware, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid byte limit %q", arg)
	}
	return BodyLimit(n, c.logger), nil
}

func (c *Catalog) circuitBreaker(arg string) (Middleware, error) {
	threshold, rawTimeout, ok := strings.Cut(arg, ":")
	if !ok {
		return nil, fmt.Errorf("expected <threshold>:<timeout>, got %q", arg)
	}

	n, err := strconv.Atoi(threshold)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid threshold %q", threshold)
	}
	d, err := time.ParseDuration(rawTimeout)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid timeout %q", rawTimeout)
	}

	cb := NewCircuitBreaker("circuitbreaker:"+arg, n, d, WithCircuitBreakerLogger(c.logger))
	return CircuitBreakerMiddleware(cb), nil
}

func headers(arg string) (Middleware, error) {
	if arg == "" {
		return nil, errors.New("expected <name>=<value>[,<name>=<value>...]")
	}

	set := make(map[string]string)
	for _, pair := range strings.Split(arg, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header pair %q", pair)
		}
		set[name] = strings.TrimSpace(value)
	}
	return Headers(HeadersConfig{ResponseSet: set}), nil
}

func cors(arg string) (Middleware, error) {
	cfg := DefaultCORSConfig()
	if arg != "" {
		cfg.AllowOrigins = strings.Split(arg, ",")
	}
	return CORS(cfg), nil
}
