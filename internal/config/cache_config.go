package config

import "time"

// Cache backend types.
const (
	CacheTypeMemory   = "memory"
	CacheTypeFile     = "file"
	CacheTypeRedis    = "redis"
	CacheTypeDisabled = "disabled"
)

// Cache defaults.
const (
	DefaultCacheTTL             = 10 * time.Minute
	DefaultCacheMaxEntries      = 10000
	DefaultRetryMaxRetries      = 3
	DefaultRetryInitialBackoff  = 100 * time.Millisecond
	DefaultRetryMaxBackoff      = 2 * time.Second
	DefaultBreakerMaxRequests   = 1
	DefaultBreakerInterval      = 30 * time.Second
	DefaultBreakerTimeout       = 10 * time.Second
	DefaultBreakerFailureThresh = 5
)

// CacheConfig configures the route result cache store.
type CacheConfig struct {
	// Type is the backend: "memory", "file", "redis" or "disabled".
	Type string `yaml:"type" toml:"type" json:"type"`

	// TTL is the lifetime of a cached match result.
	TTL Duration `yaml:"ttl,omitempty" toml:"ttl" json:"ttl,omitempty"`

	// MaxEntries bounds the memory backend.
	MaxEntries int `yaml:"maxEntries,omitempty" toml:"maxEntries" json:"maxEntries,omitempty"`

	// File configures the file backend.
	File *FileCacheConfig `yaml:"file,omitempty" toml:"file" json:"file,omitempty"`

	// Redis configures the redis backend.
	Redis *RedisCacheConfig `yaml:"redis,omitempty" toml:"redis" json:"redis,omitempty"`
}

// GetTTL returns the effective TTL.
func (c *CacheConfig) GetTTL() time.Duration {
	if c == nil || c.TTL <= 0 {
		return DefaultCacheTTL
	}
	return c.TTL.Duration()
}

// GetMaxEntries returns the effective memory bound.
func (c *CacheConfig) GetMaxEntries() int {
	if c == nil || c.MaxEntries <= 0 {
		return DefaultCacheMaxEntries
	}
	return c.MaxEntries
}

// FileCacheConfig configures the file backend.
type FileCacheConfig struct {
	// Path of the cache file. A sibling "<path>.lock" file is used
	// for the exclusive lock.
	Path string `yaml:"path" toml:"path" json:"path"`
}

// RedisCacheConfig configures the redis backend.
type RedisCacheConfig struct {
	// URL is the connection URL for standalone mode.
	// Format: redis://[user:password@]host:port[/db]
	URL string `yaml:"url,omitempty" toml:"url" json:"url,omitempty"`

	// Sentinel configures failover mode. Mutually exclusive with URL.
	Sentinel *RedisSentinelConfig `yaml:"sentinel,omitempty" toml:"sentinel" json:"sentinel,omitempty"`

	PoolSize       int      `yaml:"poolSize,omitempty" toml:"poolSize" json:"poolSize,omitempty"`
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" toml:"connectTimeout" json:"connectTimeout,omitempty"`
	ReadTimeout    Duration `yaml:"readTimeout,omitempty" toml:"readTimeout" json:"readTimeout,omitempty"`
	WriteTimeout   Duration `yaml:"writeTimeout,omitempty" toml:"writeTimeout" json:"writeTimeout,omitempty"`

	// KeyPrefix is prepended to every key.
	KeyPrefix string `yaml:"keyPrefix,omitempty" toml:"keyPrefix" json:"keyPrefix,omitempty"`

	// TTLJitter is the maximum fraction of jitter applied to TTLs (0.0 to 1.0).
	TTLJitter float64 `yaml:"ttlJitter,omitempty" toml:"ttlJitter" json:"ttlJitter,omitempty"`

	// HashKeys stores keys as SHA256 hex digests.
	HashKeys bool `yaml:"hashKeys,omitempty" toml:"hashKeys" json:"hashKeys,omitempty"`

	Retry          *RedisRetryConfig     `yaml:"retry,omitempty" toml:"retry" json:"retry,omitempty"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" toml:"circuitBreaker" json:"circuitBreaker,omitempty"`
}

// RedisSentinelConfig configures Redis Sentinel.
type RedisSentinelConfig struct {
	MasterName       string   `yaml:"masterName" toml:"masterName" json:"masterName"`
	SentinelAddrs    []string `yaml:"sentinelAddrs" toml:"sentinelAddrs" json:"sentinelAddrs"`
	SentinelPassword string   `yaml:"sentinelPassword,omitempty" toml:"sentinelPassword" json:"sentinelPassword,omitempty"`
	Password         string   `yaml:"password,omitempty" toml:"password" json:"password,omitempty"`
	DB               int      `yaml:"db,omitempty" toml:"db" json:"db,omitempty"`
}

// RedisRetryConfig configures retries of individual redis commands.
type RedisRetryConfig struct {
	MaxRetries     int      `yaml:"maxRetries,omitempty" toml:"maxRetries" json:"maxRetries,omitempty"`
	InitialBackoff Duration `yaml:"initialBackoff,omitempty" toml:"initialBackoff" json:"initialBackoff,omitempty"`
	MaxBackoff     Duration `yaml:"maxBackoff,omitempty" toml:"maxBackoff" json:"maxBackoff,omitempty"`
}

// GetMaxRetries returns the effective max retries.
func (c *RedisRetryConfig) GetMaxRetries() int {
	if c == nil || c.MaxRetries <= 0 {
		return DefaultRetryMaxRetries
	}
	return c.MaxRetries
}

// GetInitialBackoff returns the effective initial backoff.
func (c *RedisRetryConfig) GetInitialBackoff() time.Duration {
	if c == nil || c.InitialBackoff <= 0 {
		return DefaultRetryInitialBackoff
	}
	return c.InitialBackoff.Duration()
}

// GetMaxBackoff returns the effective max backoff.
func (c *RedisRetryConfig) GetMaxBackoff() time.Duration {
	if c == nil || c.MaxBackoff <= 0 {
		return DefaultRetryMaxBackoff
	}
	return c.MaxBackoff.Duration()
}

// CircuitBreakerConfig configures the breaker in front of redis.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled" json:"enabled"`

	// MaxRequests allowed through while half-open.
	MaxRequests uint32 `yaml:"maxRequests,omitempty" toml:"maxRequests" json:"maxRequests,omitempty"`

	// Interval is the closed-state period after which counts reset.
	Interval Duration `yaml:"interval,omitempty" toml:"interval" json:"interval,omitempty"`

	// Timeout is how long the breaker stays open.
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout" json:"timeout,omitempty"`

	// FailureThreshold is the number of consecutive failures that trips the breaker.
	FailureThreshold uint32 `yaml:"failureThreshold,omitempty" toml:"failureThreshold" json:"failureThreshold,omitempty"`
}

// GetMaxRequests returns the effective half-open request budget.
func (c *CircuitBreakerConfig) GetMaxRequests() uint32 {
	if c == nil || c.MaxRequests == 0 {
		return DefaultBreakerMaxRequests
	}
	return c.MaxRequests
}

// GetInterval returns the effective count reset interval.
func (c *CircuitBreakerConfig) GetInterval() time.Duration {
	if c == nil || c.Interval <= 0 {
		return DefaultBreakerInterval
	}
	return c.Interval.Duration()
}

// GetTimeout returns the effective open-state duration.
func (c *CircuitBreakerConfig) GetTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultBreakerTimeout
	}
	return c.Timeout.Duration()
}

// GetFailureThreshold returns the effective consecutive failure limit.
func (c *CircuitBreakerConfig) GetFailureThreshold() uint32 {
	if c == nil || c.FailureThreshold == 0 {
		return DefaultBreakerFailureThresh
	}
	return c.FailureThreshold
}
