package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// setupMiniRedis creates a miniredis server for testing.
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newTestRedisCache(t *testing.T, redisCfg *config.RedisCacheConfig) *redisCache {
	t.Helper()

	c, err := newRedisCache(&config.CacheConfig{
		Type:  config.CacheTypeRedis,
		TTL:   config.Duration(5 * time.Minute),
		Redis: redisCfg,
	}, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewRedisCache(t *testing.T) {
	mr := setupMiniRedis(t)

	tests := []struct {
		name      string
		redis     *config.RedisCacheConfig
		expectErr bool
	}{
		{
			name:  "valid config",
			redis: &config.RedisCacheConfig{URL: "redis://" + mr.Addr()},
		},
		{
			name: "with pool and timeouts",
			redis: &config.RedisCacheConfig{
				URL:            "redis://" + mr.Addr(),
				PoolSize:       10,
				ConnectTimeout: config.Duration(5 * time.Second),
				ReadTimeout:    config.Duration(3 * time.Second),
				WriteTimeout:   config.Duration(3 * time.Second),
			},
		},
		{
			name:      "nil redis config",
			redis:     nil,
			expectErr: true,
		},
		{
			name:      "missing url",
			redis:     &config.RedisCacheConfig{},
			expectErr: true,
		},
		{
			name:      "invalid url",
			redis:     &config.RedisCacheConfig{URL: "not-a-url://x"},
			expectErr: true,
		},
		{
			name: "sentinel without addresses",
			redis: &config.RedisCacheConfig{
				Sentinel: &config.RedisSentinelConfig{MasterName: "mymaster"},
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newRedisCache(&config.CacheConfig{
				Type:  config.CacheTypeRedis,
				Redis: tt.redis,
			}, observability.NopLogger())
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultRedisKeyPrefix, c.keyPrefix)
			assert.NoError(t, c.Close())
		})
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := setupMiniRedis(t)
	addr := mr.Addr()
	mr.Close()

	_, err := newRedisCache(&config.CacheConfig{
		Type: config.CacheTypeRedis,
		Redis: &config.RedisCacheConfig{
			URL:            "redis://" + addr,
			ConnectTimeout: config.Duration(100 * time.Millisecond),
		},
	}, observability.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection failed")
}

func TestRedisCache_SetGet(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, &config.RedisCacheConfig{URL: "redis://" + mr.Addr()})
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, mr.Exists("avarouter:k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "k"))
	exists, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, &config.RedisCacheConfig{URL: "redis://" + mr.Addr()})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "explicit", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("avarouter:explicit"))

	require.NoError(t, c.Set(ctx, "default", []byte("v"), 0))
	assert.Equal(t, 5*time.Minute, mr.TTL("avarouter:default"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "explicit")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "default")
	assert.NoError(t, err)
}

func TestRedisCache_KeyPrefixAndHashing(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, &config.RedisCacheConfig{
		URL:       "redis://" + mr.Addr(),
		KeyPrefix: "test:",
		HashKeys:  true,
	})

	require.NoError(t, c.Set(context.Background(), "GET:/users/1", []byte("v"), 0))
	assert.True(t, mr.Exists("test:"+HashKey("GET:/users/1")))
	assert.False(t, mr.Exists("test:GET:/users/1"))
}

func TestRedisCache_ClearOnlyOwnPrefix(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, &config.RedisCacheConfig{URL: "redis://" + mr.Addr()})
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, key, []byte("v"), 0))
	}
	require.NoError(t, mr.Set("foreign", "keep"))

	require.NoError(t, c.Clear(ctx))

	assert.False(t, mr.Exists("avarouter:a"))
	assert.False(t, mr.Exists("avarouter:b"))
	assert.True(t, mr.Exists("foreign"))
}

func TestRedisCache_CircuitBreakerOpens(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, &config.RedisCacheConfig{
		URL: "redis://" + mr.Addr(),
		Retry: &config.RedisRetryConfig{
			MaxRetries:     1,
			InitialBackoff: config.Duration(time.Millisecond),
			MaxBackoff:     config.Duration(time.Millisecond),
		},
		CircuitBreaker: &config.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			Timeout:          config.Duration(time.Minute),
		},
	})
	ctx := context.Background()

	// Misses do not count as failures.
	_, err := c.Get(ctx, "absent")
	require.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())

	mr.SetError("forced failure")

	err = c.Set(ctx, "k", []byte("v"), 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, gobreaker.StateOpen, c.breaker.State())

	mr.SetError("")

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestIsRetryableRedisError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "miss", err: redis.Nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "network", err: errors.New("connection refused"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableRedisError(tt.err))
		})
	}
}

func TestApplyTTLJitter(t *testing.T) {
	assert.Equal(t, time.Minute, applyTTLJitter(time.Minute, 0))
	assert.Equal(t, time.Duration(0), applyTTLJitter(0, 0.5))

	for i := 0; i < 100; i++ {
		got := applyTTLJitter(time.Minute, 0.1)
		assert.GreaterOrEqual(t, got, 54*time.Second)
		assert.LessOrEqual(t, got, 66*time.Second)
	}

	for i := 0; i < 100; i++ {
		assert.Positive(t, applyTTLJitter(time.Minute, 5))
	}
}

func TestBreakerStateValue(t *testing.T) {
	assert.Equal(t, float64(0), breakerStateValue(gobreaker.StateClosed))
	assert.Equal(t, float64(1), breakerStateValue(gobreaker.StateHalfOpen))
	assert.Equal(t, float64(2), breakerStateValue(gobreaker.StateOpen))
}
