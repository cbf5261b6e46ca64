// Package cache provides the key-value stores behind the route result
// cache.
//
// Three backends share the Cache interface:
//
//   - memory: an in-process LRU with per-entry TTL
//   - file: a single msgpack file guarded by an OS file lock, shareable
//     between processes on one host
//   - redis: standalone or Sentinel, with retries and an optional
//     circuit breaker
//
// A "disabled" store is also available; it misses on every read.
//
// # Example Usage
//
//	store, err := cache.New(&config.CacheConfig{
//	    Type: config.CacheTypeMemory,
//	    TTL:  config.Duration(5 * time.Minute),
//	}, cache.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	_ = store.Set(ctx, "GET:/users/1", payload, 0)
//	value, err := store.Get(ctx, "GET:/users/1")
//
// Every operation is traced with OpenTelemetry and measured with
// Prometheus. All stores are safe for concurrent use.
package cache
