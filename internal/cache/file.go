package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

const fileLockRetryDelay = 5 * time.Millisecond

// errCorruptFile marks a cache file that does not decode. Reads treat
// it as empty and the next write replaces it.
var errCorruptFile = errors.New("corrupt cache file")

// fileCache keeps every entry in one msgpack-encoded file. Each write
// is a read-modify-write cycle under an exclusive file lock, so
// several processes can share the file without losing entries.
type fileCache struct {
	logger     observability.Logger
	path       string
	lock       *flock.Flock
	defaultTTL time.Duration

	// mu serializes goroutines of this process; the flock only
	// excludes other processes.
	mu sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64

	// corruptLogged limits the corrupt-file warning to once per
	// corruption; it is cleared by the write that repairs the file.
	corruptLogged atomic.Bool
}

type fileEntry struct {
	Value     []byte `msgpack:"v"`
	ExpiresAt int64  `msgpack:"e,omitempty"`
}

func (e fileEntry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixNano() > e.ExpiresAt
}

func newFileCache(cfg *config.CacheConfig, logger observability.Logger) (*fileCache, error) {
	if cfg.File == nil || cfg.File.Path == "" {
		return nil, fmt.Errorf("%w: file cache requires a path", ErrInvalidConfig)
	}

	path, err := filepath.Abs(cfg.File.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &fileCache{
		logger:     logger,
		path:       path,
		lock:       flock.New(path + ".lock"),
		defaultTTL: cfg.GetTTL(),
	}

	logger.Info("file cache initialized",
		observability.String("path", path),
		observability.Duration("defaultTTL", c.defaultTTL))

	return c, nil
}

// Get retrieves a value from the cache file.
func (c *fileCache) Get(ctx context.Context, key string) (value []byte, err error) {
	ctx, op := startOperation(ctx, backendFile, "Get", key, trace.SpanKindInternal)
	defer func() { op.end(err) }()

	var entry fileEntry
	var found bool
	err = c.withLock(ctx, false, func() error {
		entries, readErr := c.load()
		if readErr != nil {
			return readErr
		}
		entry, found = entries[key]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found || entry.expired(time.Now()) {
		c.misses.Add(1)
		op.hit(false)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	op.hit(true)
	return entry.Value, nil
}

// Set stores a value, pruning expired entries on the way.
func (c *fileCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	ctx, op := startOperation(ctx, backendFile, "Set", key, trace.SpanKindInternal)
	defer func() { op.end(err) }()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	entry := fileEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl).UnixNano()
	}

	return c.modify(ctx, func(entries map[string]fileEntry) {
		entries[key] = entry
	})
}

// Delete removes a value from the cache file.
func (c *fileCache) Delete(ctx context.Context, key string) (err error) {
	ctx, op := startOperation(ctx, backendFile, "Delete", key, trace.SpanKindInternal)
	defer func() { op.end(err) }()

	return c.modify(ctx, func(entries map[string]fileEntry) {
		delete(entries, key)
	})
}

// Exists checks if a live entry exists.
func (c *fileCache) Exists(ctx context.Context, key string) (exists bool, err error) {
	ctx, op := startOperation(ctx, backendFile, "Exists", key, trace.SpanKindInternal)
	defer func() { op.end(err) }()

	err = c.withLock(ctx, false, func() error {
		entries, readErr := c.load()
		if readErr != nil {
			return readErr
		}
		entry, ok := entries[key]
		exists = ok && !entry.expired(time.Now())
		return nil
	})
	return exists, err
}

// Clear truncates the cache to an empty map.
func (c *fileCache) Clear(ctx context.Context) (err error) {
	ctx, op := startOperation(ctx, backendFile, "Clear", "*", trace.SpanKindInternal)
	defer func() { op.end(err) }()

	return c.withLock(ctx, true, func() error {
		return c.write(map[string]fileEntry{})
	})
}

// Close is a no-op; the lock is only held during operations.
func (c *fileCache) Close() error {
	return nil
}

// Stats returns cache statistics.
func (c *fileCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

func (c *fileCache) modify(ctx context.Context, fn func(map[string]fileEntry)) error {
	return c.withLock(ctx, true, func() error {
		entries, err := c.load()
		if err != nil {
			return err
		}

		now := time.Now()
		for k, e := range entries {
			if e.expired(now) {
				delete(entries, k)
			}
		}

		fn(entries)
		return c.write(entries)
	})
}

func (c *fileCache) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var locked bool
	var err error
	if exclusive {
		locked, err = c.lock.TryLockContext(ctx, fileLockRetryDelay)
	} else {
		locked, err = c.lock.TryRLockContext(ctx, fileLockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("failed to lock cache file: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock cache file %s", c.path)
	}
	defer func() {
		if unlockErr := c.lock.Unlock(); unlockErr != nil {
			c.logger.Warn("failed to unlock cache file", observability.Error(unlockErr))
		}
	}()

	return fn()
}

// read must be called with the lock held. A missing or empty file is
// an empty cache.
func (c *fileCache) read() (map[string]fileEntry, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return make(map[string]fileEntry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	entries := make(map[string]fileEntry)
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	return entries, nil
}

// load is read with an undecodable file taken as empty, so that the
// next modification overwrites it.
func (c *fileCache) load() (map[string]fileEntry, error) {
	entries, err := c.read()
	if errors.Is(err, errCorruptFile) {
		if c.corruptLogged.CompareAndSwap(false, true) {
			c.logger.Warn("cache file does not decode, treating it as empty",
				observability.String("path", c.path),
				observability.Error(err),
			)
		}
		return make(map[string]fileEntry), nil
	}
	return entries, err
}

// write must be called with the exclusive lock held. The file is
// replaced by rename so readers never observe a partial write.
func (c *fileCache) write(entries map[string]fileEntry) error {
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	c.corruptLogged.Store(false)
	return nil
}
