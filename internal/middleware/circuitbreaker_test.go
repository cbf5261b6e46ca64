package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerMiddleware(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("test-breaker", 2, time.Minute)

	status := http.StatusInternalServerError
	calls := 0
	h := CircuitBreakerMiddleware(cb)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	assert.Equal(t, http.StatusInternalServerError, serve(h, http.MethodGet, "/").Code)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, http.StatusInternalServerError, serve(h, http.MethodGet, "/").Code)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	w := serve(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, ErrServiceUnavailable, w.Body.String())
	assert.Equal(t, 2, calls)
}

func TestCircuitBreakerMiddleware_SuccessesKeepClosed(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("healthy", 2, time.Minute)
	h := CircuitBreakerMiddleware(cb)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for range 5 {
		assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/").Code)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestSafeIntToUint32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), safeIntToUint32(-5))
	assert.Equal(t, uint32(7), safeIntToUint32(7))
	assert.Equal(t, ^uint32(0), safeIntToUint32(1<<40))
}
