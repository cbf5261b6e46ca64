package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled indicates that caching is disabled.
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrUnavailable indicates that the backend rejected the call
	// without trying, for example because its circuit breaker is open.
	ErrUnavailable = errors.New("cache backend unavailable")
)

// Backend labels used in metrics and spans.
const (
	backendMemory   = "memory"
	backendFile     = "file"
	backendRedis    = "redis"
	cacheTracerName = "avarouter/cache"
)

// Cache is a key-value store with per-entry TTL and last-write-wins
// semantics per key. Implementations are safe for concurrent use.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss if the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A TTL of 0 uses the store default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a live entry exists for key.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes every entry owned by this store.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// CacheWithStats extends Cache with statistics.
type CacheWithStats interface {
	Cache

	// Stats returns cache statistics.
	Stats() CacheStats
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Hits   int64
	Misses int64

	// Size is the current number of entries, when the backend knows it.
	Size int64
}

// HitRate returns the cache hit rate as a percentage.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Option configures New.
type Option func(*options)

type options struct {
	logger observability.Logger
}

// WithLogger sets the logger used by the store.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates the store selected by cfg.Type. An empty type selects
// the memory store.
func New(cfg *config.CacheConfig, opts ...Option) (Cache, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	o := &options{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return newMemoryCache(cfg, o.logger), nil
	case config.CacheTypeFile:
		return newFileCache(cfg, o.logger)
	case config.CacheTypeRedis:
		return newRedisCache(cfg, o.logger)
	case config.CacheTypeDisabled:
		return NewDisabled(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache type %q", ErrInvalidConfig, cfg.Type)
	}
}

// NewDisabled returns a store that never holds anything.
func NewDisabled() Cache {
	return disabledCache{}
}

// disabledCache always misses and refuses writes.
type disabledCache struct{}

func (disabledCache) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheDisabled
}

func (disabledCache) Set(context.Context, string, []byte, time.Duration) error {
	return ErrCacheDisabled
}

func (disabledCache) Delete(context.Context, string) error {
	return nil
}

func (disabledCache) Exists(context.Context, string) (bool, error) {
	return false, nil
}

func (disabledCache) Clear(context.Context) error {
	return nil
}

func (disabledCache) Close() error {
	return nil
}

// operation is one traced and timed store call.
type operation struct {
	span    trace.Span
	backend string
	name    string
	start   time.Time
}

func startOperation(
	ctx context.Context,
	backend, name, key string,
	kind trace.SpanKind,
) (context.Context, *operation) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache."+name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			attribute.String("cache.backend", backend),
			attribute.String("cache.key", key),
		),
	)
	return ctx, &operation{span: span, backend: backend, name: name, start: time.Now()}
}

func (op *operation) hit(hit bool) {
	m := GetCacheMetrics()
	if hit {
		m.hitsTotal.WithLabelValues(op.backend).Inc()
	} else {
		m.missesTotal.WithLabelValues(op.backend).Inc()
	}
	op.span.SetAttributes(attribute.Bool("cache.hit", hit))
}

// end closes the span. Misses are not failures.
func (op *operation) end(err error) {
	GetCacheMetrics().operationDuration.WithLabelValues(op.backend, op.name).
		Observe(time.Since(op.start).Seconds())

	if err != nil && !errors.Is(err, ErrCacheMiss) {
		GetCacheMetrics().errorsTotal.WithLabelValues(op.backend, op.name).Inc()
		op.span.SetStatus(codes.Error, err.Error())
		op.span.RecordError(err)
	}
	op.span.End()
}
