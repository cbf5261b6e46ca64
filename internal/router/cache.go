package router

import (
	"context"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vyrodovalexey/avarouter/internal/cache"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// Result cache key namespaces.
const (
	cacheKeyPrefix    = "route"
	cacheNamespaceOne = "m"
	cacheNamespaceAll = "a"
)

// cachedMatch is the dehydrated form of a Match. It never carries the
// handler or middleware, only what is needed to find the route again.
type cachedMatch struct {
	ID     string `msgpack:"id"`
	Params Params `msgpack:"p"`
}

// RouteLookup returns the live route with the given identifier, or nil.
type RouteLookup func(id string) *Route

// CachedSelector decorates a Selector with a result cache. Successful
// lookups are stored as (identifier, parameters); a stored identifier
// that no longer resolves counts as a miss. Failed lookups are never
// stored, and store failures only cost a recomputation.
type CachedSelector struct {
	inner     Selector
	store     cache.Cache
	lookup    RouteLookup
	namespace string
	ttl       time.Duration
	logger    observability.Logger
}

// CachedSelectorOption configures a CachedSelector.
type CachedSelectorOption func(*CachedSelector)

// WithCacheTTL sets the TTL of stored results. Zero uses the store default.
func WithCacheTTL(ttl time.Duration) CachedSelectorOption {
	return func(c *CachedSelector) {
		c.ttl = ttl
	}
}

// WithCacheLogger sets the logger for store failures.
func WithCacheLogger(logger observability.Logger) CachedSelectorOption {
	return func(c *CachedSelector) {
		c.logger = logger
	}
}

// NewCachedSelector wraps inner. The namespace separates results of
// different route tables sharing one store.
func NewCachedSelector(
	inner Selector,
	store cache.Cache,
	lookup RouteLookup,
	namespace string,
	opts ...CachedSelectorOption,
) *CachedSelector {
	c := &CachedSelector{
		inner:     inner,
		store:     store,
		lookup:    lookup,
		namespace: namespace,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedSelector) key(kind, method, path string) string {
	return cache.JoinKey(cacheKeyPrefix, kind, c.namespace, cache.GenerateSimpleKey(method, path))
}

// Match implements Selector.
func (c *CachedSelector) Match(ctx context.Context, method, path string) (Match, bool) {
	path = NormalizePath(path)
	key := c.key(cacheNamespaceOne, method, path)

	var stored cachedMatch
	if c.load(ctx, key, &stored) {
		if m, ok := c.rehydrate(stored); ok {
			getRouterMetrics().resultCache.WithLabelValues(resultCacheHit).Inc()
			return m, true
		}
		getRouterMetrics().resultCache.WithLabelValues(resultCacheRehydrationMiss).Inc()
	}

	m, ok := c.inner.Match(ctx, method, path)
	if ok {
		c.save(ctx, key, dehydrate(m))
	}
	return m, ok
}

// FindAll implements Selector.
func (c *CachedSelector) FindAll(ctx context.Context, method, path string) []Match {
	path = NormalizePath(path)
	key := c.key(cacheNamespaceAll, method, path)

	var stored []cachedMatch
	if c.load(ctx, key, &stored) {
		if matches, ok := c.rehydrateAll(stored); ok {
			getRouterMetrics().resultCache.WithLabelValues(resultCacheHit).Inc()
			return matches
		}
		getRouterMetrics().resultCache.WithLabelValues(resultCacheRehydrationMiss).Inc()
	}

	matches := c.inner.FindAll(ctx, method, path)
	if len(matches) > 0 {
		dehydrated := make([]cachedMatch, len(matches))
		for i, m := range matches {
			dehydrated[i] = dehydrate(m)
		}
		c.save(ctx, key, dehydrated)
	}
	return matches
}

func dehydrate(m Match) cachedMatch {
	return cachedMatch{ID: m.Route.ID(), Params: m.Params}
}

func (c *CachedSelector) rehydrate(stored cachedMatch) (Match, bool) {
	route := c.lookup(stored.ID)
	if route == nil {
		return Match{}, false
	}
	return Match{Route: route, Params: stored.Params}, true
}

func (c *CachedSelector) rehydrateAll(stored []cachedMatch) ([]Match, bool) {
	if len(stored) == 0 {
		return nil, false
	}
	matches := make([]Match, 0, len(stored))
	for _, s := range stored {
		m, ok := c.rehydrate(s)
		if !ok {
			return nil, false
		}
		matches = append(matches, m)
	}
	return matches, true
}

// load reads and decodes key into v. It reports false on a miss or
// on any failure.
func (c *CachedSelector) load(ctx context.Context, key string, v any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
			getRouterMetrics().resultCache.WithLabelValues(resultCacheStoreError).Inc()
			c.logger.Warn("result cache read failed",
				observability.String("key", key),
				observability.Error(err))
			return false
		}
		getRouterMetrics().resultCache.WithLabelValues(resultCacheMiss).Inc()
		return false
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		getRouterMetrics().resultCache.WithLabelValues(resultCacheStoreError).Inc()
		c.logger.Warn("result cache entry undecodable",
			observability.String("key", key),
			observability.Error(err))
		return false
	}
	return true
}

func (c *CachedSelector) save(ctx context.Context, key string, v any) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		c.logger.Warn("result cache entry unencodable",
			observability.String("key", key),
			observability.Error(err))
		return
	}

	if err := c.store.Set(ctx, key, data, c.ttl); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		getRouterMetrics().resultCache.WithLabelValues(resultCacheStoreError).Inc()
		c.logger.Warn("result cache write failed",
			observability.String("key", key),
			observability.Error(err))
	}
}
