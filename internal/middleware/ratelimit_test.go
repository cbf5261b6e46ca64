package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowGlobal(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, 2, false)

	assert.True(t, rl.Allow("192.168.1.1"))
	assert.True(t, rl.Allow("192.168.1.2"))
	assert.False(t, rl.Allow("192.168.1.3"))
	assert.Zero(t, rl.Clients())
}

func TestRateLimiter_AllowPerClient(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, true)

	assert.True(t, rl.Allow("192.168.1.1"))
	assert.False(t, rl.Allow("192.168.1.1"))
	assert.True(t, rl.Allow("192.168.1.2"))
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_CleanupOldClients(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(10, 10, true)
	rl.Allow("a")
	rl.Allow("b")

	rl.CleanupOldClients(time.Hour)
	assert.Equal(t, 2, rl.Clients())

	time.Sleep(5 * time.Millisecond)
	rl.CleanupOldClients(time.Millisecond)
	assert.Zero(t, rl.Clients())
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(10, 10, true)
	rl.SetClientTTL(time.Minute)
	rl.StartAutoCleanup()

	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})

	// Starting after Stop is a no-op.
	rl.StartAutoCleanup()
}

func TestRateLimit_Middleware(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, true, WithRateLimiterExtractor(NewClientIPExtractor([]string{"10.0.0.0/8"})))
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set(HeaderXForwardedFor, xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, request("203.0.113.1").Code)

	w := request("203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get(HeaderRetryAfter))
	assert.JSONEq(t, ErrRateLimitExceeded, w.Body.String())

	// A different client behind the same proxy has its own bucket.
	assert.Equal(t, http.StatusOK, request("203.0.113.2").Code)
}
