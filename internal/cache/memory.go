package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

const memoryCleanupInterval = time.Minute

// memoryCache implements an in-memory LRU cache with TTL.
type memoryCache struct {
	logger     observability.Logger
	maxEntries int
	defaultTTL time.Duration

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	hits   atomic.Int64
	misses atomic.Int64

	stopCh    chan struct{}
	closeOnce sync.Once
}

type memoryCacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryCacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func newMemoryCache(cfg *config.CacheConfig, logger observability.Logger) *memoryCache {
	c := &memoryCache{
		logger:     logger,
		maxEntries: cfg.GetMaxEntries(),
		defaultTTL: cfg.GetTTL(),
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop(memoryCleanupInterval)

	logger.Info("memory cache initialized",
		observability.Int("maxEntries", c.maxEntries),
		observability.Duration("defaultTTL", c.defaultTTL))

	return c
}

// Get retrieves a value from the cache.
func (c *memoryCache) Get(ctx context.Context, key string) (value []byte, err error) {
	_, op := startOperation(ctx, backendMemory, "Get", key, trace.SpanKindInternal)
	defer func() { op.end(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		entry := elem.Value.(*memoryCacheEntry)
		if !entry.expired(time.Now()) {
			c.eviction.MoveToFront(elem)
			c.hits.Add(1)
			op.hit(true)
			return entry.value, nil
		}
		c.removeElement(elem)
	}

	c.misses.Add(1)
	op.hit(false)
	return nil, ErrCacheMiss
}

// Set stores a value in the cache.
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, op := startOperation(ctx, backendMemory, "Set", key, trace.SpanKindInternal)
	defer op.end(nil)

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	entry := &memoryCacheEntry{key: key, value: value, expiresAt: expiresAt}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.eviction.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.eviction.PushFront(entry)
	for c.eviction.Len() > c.maxEntries {
		c.evictOldest()
	}

	GetCacheMetrics().sizeGauge.WithLabelValues(backendMemory).Set(float64(c.eviction.Len()))
	return nil
}

// Delete removes a value from the cache.
func (c *memoryCache) Delete(ctx context.Context, key string) error {
	_, op := startOperation(ctx, backendMemory, "Delete", key, trace.SpanKindInternal)
	defer op.end(nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Exists checks if a live entry exists.
func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, op := startOperation(ctx, backendMemory, "Exists", key, trace.SpanKindInternal)
	defer op.end(nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false, nil
	}
	if elem.Value.(*memoryCacheEntry).expired(time.Now()) {
		c.removeElement(elem)
		return false, nil
	}
	return true, nil
}

// Clear removes every entry.
func (c *memoryCache) Clear(ctx context.Context) error {
	_, op := startOperation(ctx, backendMemory, "Clear", "*", trace.SpanKindInternal)
	defer op.end(nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	GetCacheMetrics().sizeGauge.WithLabelValues(backendMemory).Set(0)
	return nil
}

// Close stops the cleanup goroutine and drops all entries.
func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		c.items = make(map[string]*list.Element)
		c.eviction.Init()
		c.mu.Unlock()

		c.logger.Info("memory cache closed")
	})
	return nil
}

// Stats returns cache statistics.
func (c *memoryCache) Stats() CacheStats {
	c.mu.Lock()
	size := int64(c.eviction.Len())
	c.mu.Unlock()

	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}

// evictOldest must be called with mu held.
func (c *memoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		GetCacheMetrics().evictionsTotal.WithLabelValues(backendMemory).Inc()
	}
}

// removeElement must be called with mu held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryCacheEntry).key)
}

func (c *memoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryCacheEntry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		GetCacheMetrics().sizeGauge.WithLabelValues(backendMemory).Set(float64(c.eviction.Len()))
		c.logger.Debug("memory cache cleanup completed", observability.Int("removed", removed))
	}
}
