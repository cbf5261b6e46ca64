package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

func newTestFileCache(t *testing.T, path string) *fileCache {
	t.Helper()

	c, err := newFileCache(&config.CacheConfig{
		Type: config.CacheTypeFile,
		TTL:  config.Duration(time.Minute),
		File: &config.FileCacheConfig{Path: path},
	}, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewFileCache_RequiresPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.CacheConfig
	}{
		{name: "nil file section", cfg: &config.CacheConfig{Type: config.CacheTypeFile}},
		{name: "empty path", cfg: &config.CacheConfig{Type: config.CacheTypeFile, File: &config.FileCacheConfig{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFileCache(tt.cfg, observability.NopLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestFileCache_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "routes.cache")
	c := newTestFileCache(t, path)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileCache_SetGetDelete(t *testing.T) {
	c := newTestFileCache(t, filepath.Join(t.TempDir(), "routes.cache"))
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestFileCache_Expiry(t *testing.T) {
	c := newTestFileCache(t, filepath.Join(t.TempDir(), "routes.cache"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// The next write prunes the expired entry from the file.
	require.NoError(t, c.Set(ctx, "other", []byte("v"), 0))
	entries, err := c.read()
	require.NoError(t, err)
	assert.NotContains(t, entries, "short")
	assert.Contains(t, entries, "other")
}

func TestFileCache_SharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.cache")
	first := newTestFileCache(t, path)
	second := newTestFileCache(t, path)
	ctx := context.Background()

	require.NoError(t, first.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, second.Set(ctx, "b", []byte("2"), 0))

	got, err := second.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	got, err = first.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestFileCache_Clear(t *testing.T) {
	c := newTestFileCache(t, filepath.Join(t.TempDir(), "routes.cache"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Clear(ctx))

	exists, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileCache_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.cache")
	require.NoError(t, os.WriteFile(path, []byte{0xc1, 0xc1}, 0o600))

	c := newTestFileCache(t, path)
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss, "an undecodable file reads as empty")

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Set(ctx, "k2", []byte("v2"), 0))

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.False(t, c.corruptLogged.Load(), "the repairing write clears the warning latch")

	entries, err := c.read()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileCache_ReadReportsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.cache")
	require.NoError(t, os.WriteFile(path, []byte{0xc1, 0xff, 0x00}, 0o600))

	c := newTestFileCache(t, path)

	_, err := c.read()
	assert.ErrorIs(t, err, errCorruptFile)
}

func TestFileCache_Concurrent(t *testing.T) {
	c := newTestFileCache(t, filepath.Join(t.TempDir(), "routes.cache"))
	ctx := context.Background()

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e"}
	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			assert.NoError(t, c.Set(ctx, k, []byte(k), 0))
		}(key)
	}
	wg.Wait()

	for _, key := range keys {
		got, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(key), got)
	}
}

func TestFileCache_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.cache")
	holder := newTestFileCache(t, path)
	c := newTestFileCache(t, path)

	locked, err := holder.lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.lock.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = c.Set(ctx, "k", []byte("v"), 0)
	assert.Error(t, err)
}
