// Package retry runs an operation again with exponential backoff and
// jitter until it succeeds, returns a permanent error, exhausts its
// attempts or the context ends.
//
//	err := retry.Do(ctx, &retry.Config{MaxRetries: 2}, func() error {
//	    return client.Set(ctx, key, value, ttl).Err()
//	}, &retry.Options{
//	    OnRetry: func(attempt int, err error, wait time.Duration) {
//	        logger.Debug("retrying", observability.Int("attempt", attempt))
//	    },
//	})
package retry
