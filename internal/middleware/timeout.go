package middleware

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// timeoutGracePeriod is how long a timed-out handler goroutine is
// awaited before the middleware returns.
const timeoutGracePeriod = 100 * time.Millisecond

// Timeout returns a middleware that answers 504 when the rest of the
// pipeline has not started a response within timeout. The request
// context carries the deadline.
func Timeout(timeout time.Duration, logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			done := make(chan struct{})
			tw := &timeoutWriter{ResponseWriter: w, ctx: ctx, header: make(http.Header)}

			go func() {
				defer close(done)
				defer func() {
					if rec := recover(); rec != nil {
						logger.Error("panic in timeout handler",
							observability.String("path", r.URL.Path),
							observability.Any("panic", rec),
						)
					}
				}()
				next.ServeHTTP(tw, r)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				handleTimeout(tw, w, r, timeout, done, logger)
			}
		})
	}
}

func handleTimeout(
	tw *timeoutWriter,
	w http.ResponseWriter,
	r *http.Request,
	timeout time.Duration,
	done chan struct{},
	logger observability.Logger,
) {
	tw.mu.Lock()
	respond := !tw.written
	tw.timedOut = true
	tw.mu.Unlock()

	if respond {
		GetMiddlewareMetrics().timeoutsTotal.WithLabelValues(routeLabel(r)).Inc()
		logger.Warn("request timeout",
			observability.String("path", r.URL.Path),
			observability.String("method", r.Method),
			observability.Duration("timeout", timeout),
		)

		w.Header().Set(HeaderContentType, ContentTypeJSON)
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = io.WriteString(w, ErrGatewayTimeout)
	}

	select {
	case <-done:
	case <-time.After(timeoutGracePeriod):
	}
}

// timeoutWriter buffers headers in its own map and drops writes once
// the timeout response was sent, so the handler goroutine never
// touches the real writer after that.
type timeoutWriter struct {
	http.ResponseWriter
	ctx      context.Context
	header   http.Header
	mu       sync.Mutex
	written  bool
	timedOut bool
}

// Header returns the handler-side header map.
func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

// WriteHeader records that the response has started.
func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.written {
		return
	}
	tw.start(code)
}

// Write returns the context error after the timeout fired.
func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, tw.ctx.Err()
	}
	if !tw.written {
		tw.start(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

// start copies buffered headers to the real writer; tw.mu is held.
func (tw *timeoutWriter) start(code int) {
	tw.written = true
	dst := tw.ResponseWriter.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	tw.ResponseWriter.WriteHeader(code)
}
