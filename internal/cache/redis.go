package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
	"github.com/vyrodovalexey/avarouter/internal/retry"
)

const (
	defaultRedisKeyPrefix = "avarouter:"
	redisPingTimeout      = 5 * time.Second
	redisClearBatchSize   = 100
)

// redisCache implements a Redis-based cache. Every command runs under
// retry with backoff and, when configured, behind a circuit breaker.
type redisCache struct {
	logger     observability.Logger
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	ttlJitter  float64
	hashKeys   bool
	retryCfg   *retry.Config
	breaker    *gobreaker.CircuitBreaker

	hits   atomic.Int64
	misses atomic.Int64
}

// isRetryableRedisError checks if the error is worth retrying.
// Misses and context errors are not.
func isRetryableRedisError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// applyTTLJitter varies ttl by up to ±jitterFactor so entries written
// together do not expire together.
func applyTTLJitter(ttl time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || ttl <= 0 {
		return ttl
	}
	if jitterFactor > 1.0 {
		jitterFactor = 1.0
	}
	//nolint:gosec // TTL jitter does not need cryptographic randomness
	jitter := time.Duration(float64(ttl) * jitterFactor * (2*rand.Float64() - 1))
	result := ttl + jitter
	if result <= 0 {
		return ttl
	}
	return result
}

func resolveKeyPrefix(prefix string) string {
	if prefix == "" {
		return defaultRedisKeyPrefix
	}
	return prefix
}

// resolveKey applies key prefix and optional SHA256 hashing.
func (c *redisCache) resolveKey(key string) string {
	if c.hashKeys {
		return c.keyPrefix + HashKey(key)
	}
	return c.keyPrefix + key
}

// newRedisCache dispatches between standalone and sentinel modes.
func newRedisCache(cfg *config.CacheConfig, logger observability.Logger) (*redisCache, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("%w: redis configuration is required", ErrInvalidConfig)
	}

	var (
		client *redis.Client
		err    error
	)
	if cfg.Redis.Sentinel != nil && cfg.Redis.Sentinel.MasterName != "" {
		client, err = newSentinelClient(cfg.Redis)
	} else {
		client, err = newStandaloneClient(cfg.Redis)
	}
	if err != nil {
		return nil, err
	}

	if err := pingRedis(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	c := &redisCache{
		logger:     logger,
		client:     client,
		keyPrefix:  resolveKeyPrefix(cfg.Redis.KeyPrefix),
		defaultTTL: cfg.GetTTL(),
		ttlJitter:  cfg.Redis.TTLJitter,
		hashKeys:   cfg.Redis.HashKeys,
		retryCfg: &retry.Config{
			MaxRetries:     cfg.Redis.Retry.GetMaxRetries(),
			InitialBackoff: cfg.Redis.Retry.GetInitialBackoff(),
			MaxBackoff:     cfg.Redis.Retry.GetMaxBackoff(),
			JitterFactor:   retry.DefaultJitterFactor,
		},
	}

	if cb := cfg.Redis.CircuitBreaker; cb != nil && cb.Enabled {
		c.breaker = newRedisBreaker(cb, logger)
	}

	logger.Info("redis cache initialized",
		observability.String("keyPrefix", c.keyPrefix),
		observability.Duration("defaultTTL", c.defaultTTL),
		observability.Float64("ttlJitter", c.ttlJitter),
		observability.Bool("hashKeys", c.hashKeys),
		observability.Bool("circuitBreaker", c.breaker != nil))

	return c, nil
}

func newStandaloneClient(cfg *config.RedisCacheConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: redis URL is required for standalone mode", ErrInvalidConfig)
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrInvalidConfig, err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	return redis.NewClient(opts), nil
}

func newSentinelClient(cfg *config.RedisCacheConfig) (*redis.Client, error) {
	sentinel := cfg.Sentinel
	if len(sentinel.SentinelAddrs) == 0 {
		return nil, fmt.Errorf("%w: at least one sentinel address is required", ErrInvalidConfig)
	}

	opts := &redis.FailoverOptions{
		MasterName:       sentinel.MasterName,
		SentinelAddrs:    sentinel.SentinelAddrs,
		SentinelPassword: sentinel.SentinelPassword,
		Password:         sentinel.Password,
		DB:               sentinel.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	return redis.NewFailoverClient(opts), nil
}

func pingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func newRedisBreaker(cfg *config.CircuitBreakerConfig, logger observability.Logger) *gobreaker.CircuitBreaker {
	const name = "redis-cache"
	threshold := cfg.GetFailureThreshold()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.GetMaxRequests(),
		Interval:    cfg.GetInterval(),
		Timeout:     cfg.GetTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()))
			GetCacheMetrics().breakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	}
	GetCacheMetrics().breakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker(settings)
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// do runs fn with retries, behind the breaker when one is configured.
// A breaker that rejects the call yields ErrUnavailable.
func (c *redisCache) do(ctx context.Context, opName, key string, fn func() error) error {
	attempt := func() error {
		return retry.Do(ctx, c.retryCfg, fn, &retry.Options{
			ShouldRetry: isRetryableRedisError,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				c.logger.Debug("retrying redis "+opName,
					observability.String("key", key),
					observability.Int("attempt", attempt),
					observability.Duration("backoff", backoff),
					observability.Error(err))
			},
		})
	}

	if c.breaker == nil {
		return attempt()
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, attempt()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// Get retrieves a value from redis.
func (c *redisCache) Get(ctx context.Context, key string) (value []byte, err error) {
	ctx, op := startOperation(ctx, backendRedis, "Get", key, trace.SpanKindClient)
	defer func() { op.end(err) }()

	fullKey := c.resolveKey(key)
	err = c.do(ctx, "get", key, func() error {
		val, getErr := c.client.Get(ctx, fullKey).Bytes()
		if getErr != nil {
			return getErr
		}
		value = val
		return nil
	})

	switch {
	case err == nil:
		c.hits.Add(1)
		op.hit(true)
		return value, nil
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		op.hit(false)
		return nil, ErrCacheMiss
	default:
		c.logger.Error("redis get failed",
			observability.String("key", key),
			observability.Error(err))
		return nil, err
	}
}

// Set stores a value in redis with a jittered TTL.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	ctx, op := startOperation(ctx, backendRedis, "Set", key, trace.SpanKindClient)
	defer func() { op.end(err) }()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ttl = applyTTLJitter(ttl, c.ttlJitter)
	if ttl < 0 {
		ttl = 0
	}

	fullKey := c.resolveKey(key)
	err = c.do(ctx, "set", key, func() error {
		return c.client.Set(ctx, fullKey, value, ttl).Err()
	})
	if err != nil {
		c.logger.Error("redis set failed",
			observability.String("key", key),
			observability.Error(err))
	}
	return err
}

// Delete removes a value from redis.
func (c *redisCache) Delete(ctx context.Context, key string) (err error) {
	ctx, op := startOperation(ctx, backendRedis, "Delete", key, trace.SpanKindClient)
	defer func() { op.end(err) }()

	fullKey := c.resolveKey(key)
	return c.do(ctx, "delete", key, func() error {
		return c.client.Del(ctx, fullKey).Err()
	})
}

// Exists checks if a key exists in redis.
func (c *redisCache) Exists(ctx context.Context, key string) (exists bool, err error) {
	ctx, op := startOperation(ctx, backendRedis, "Exists", key, trace.SpanKindClient)
	defer func() { op.end(err) }()

	fullKey := c.resolveKey(key)
	err = c.do(ctx, "exists", key, func() error {
		n, existsErr := c.client.Exists(ctx, fullKey).Result()
		if existsErr != nil {
			return existsErr
		}
		exists = n > 0
		return nil
	})
	return exists, err
}

// Clear deletes every key under the configured prefix.
func (c *redisCache) Clear(ctx context.Context) (err error) {
	ctx, op := startOperation(ctx, backendRedis, "Clear", c.keyPrefix+"*", trace.SpanKindClient)
	defer func() { op.end(err) }()

	var cursor uint64
	for {
		var keys []string
		err = c.do(ctx, "scan", c.keyPrefix+"*", func() error {
			var scanErr error
			keys, cursor, scanErr = c.client.Scan(ctx, cursor, c.keyPrefix+"*", redisClearBatchSize).Result()
			return scanErr
		})
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			err = c.do(ctx, "del", c.keyPrefix+"*", func() error {
				return c.client.Del(ctx, keys...).Err()
			})
			if err != nil {
				return err
			}
		}

		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the redis client.
func (c *redisCache) Close() error {
	c.logger.Info("closing redis cache")
	return c.client.Close()
}

// Stats returns cache statistics.
func (c *redisCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
