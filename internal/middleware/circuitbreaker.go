package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// cbTracer is the OTEL tracer used for circuit breaker operations.
var cbTracer = otel.Tracer("avarouter/circuitbreaker")

// CircuitBreaker trips when too many responses of the wrapped pipeline
// are server errors, answering 503 until it half-opens again.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger observability.Logger
}

// CircuitBreakerOption is a functional option for configuring the circuit breaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithCircuitBreakerLogger sets the logger for the circuit breaker.
func WithCircuitBreakerLogger(logger observability.Logger) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

// NewCircuitBreaker creates a breaker that opens once at least
// threshold requests were seen in the current interval and half of
// them failed. It stays open for timeout.
func NewCircuitBreaker(
	name string,
	threshold int,
	timeout time.Duration,
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:   name,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(cb)
	}

	thresholdU32 := safeIntToUint32(threshold)

	cb.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < thresholdU32 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: cb.onStateChange,
	})
	return cb
}

func (cb *CircuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	cb.logger.Info("circuit breaker state change",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	GetMiddlewareMetrics().circuitTransitions.WithLabelValues(name, from.String(), to.String()).Inc()

	_, span := cbTracer.Start(context.Background(), "circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.name", name),
		attribute.String("circuitbreaker.from", from.String()),
		attribute.String("circuitbreaker.to", to.String()),
	))
	span.End()
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}

// serverError marks a 5xx response as a breaker failure.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: status %d", e.status)
}

// CircuitBreakerMiddleware returns a middleware that runs the rest of
// the pipeline through cb.
func CircuitBreakerMiddleware(cb *CircuitBreaker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mm := GetMiddlewareMetrics()
			rw := newResponseWriter(w)

			_, err := cb.cb.Execute(func() (any, error) {
				mm.circuitBreakerState.WithLabelValues(cb.name, cb.State().String()).Inc()

				next.ServeHTTP(rw, r)

				if rw.status >= http.StatusInternalServerError {
					return nil, &serverError{status: rw.status}
				}
				return nil, nil
			})

			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				mm.circuitBreakerState.WithLabelValues(cb.name, "rejected").Inc()
				cb.logger.Warn("circuit breaker rejected request",
					observability.String("name", cb.name),
					observability.String("path", r.URL.Path),
					observability.String("state", cb.State().String()),
				)

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = io.WriteString(w, ErrServiceUnavailable)
			}
		})
	}
}
