package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fastConfig(retries int) *Config {
	return &Config{MaxRetries: retries, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failures  int
		cfg       *Config
		opts      *Options
		wantErr   error
		wantCalls int
	}{
		{name: "succeeds first time", failures: 0, cfg: fastConfig(3), wantCalls: 1},
		{name: "succeeds after retries", failures: 2, cfg: fastConfig(3), wantCalls: 3},
		{name: "exhausts retries", failures: 10, cfg: fastConfig(2), wantErr: errBoom, wantCalls: 3},
		{
			name:      "not retryable",
			failures:  10,
			cfg:       fastConfig(5),
			opts:      &Options{ShouldRetry: func(error) bool { return false }},
			wantErr:   errBoom,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			err := Do(context.Background(), tt.cfg, func() error {
				calls++
				if calls <= tt.failures {
					return errBoom
				}
				return nil
			}, tt.opts)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestDo_Permanent(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return Permanent(errBoom)
	}, nil)

	assert.Same(t, errBoom, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestDo_OnRetry(t *testing.T) {
	t.Parallel()

	var attempts []int
	_ = Do(context.Background(), fastConfig(2), func() error { return errBoom }, &Options{
		OnRetry: func(attempt int, err error, wait time.Duration) {
			attempts = append(attempts, attempt)
			assert.ErrorIs(t, err, errBoom)
			assert.LessOrEqual(t, wait, 2*time.Millisecond)
		},
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, nil, func() error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := &Config{MaxRetries: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}
	err := Do(ctx, cfg, func() error { return errBoom }, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{name: "first attempt", attempt: 0, min: 100 * time.Millisecond, max: 125 * time.Millisecond},
		{name: "third attempt", attempt: 2, min: 400 * time.Millisecond, max: 500 * time.Millisecond},
		{name: "capped", attempt: 20, min: time.Second, max: time.Second},
		{name: "negative attempt", attempt: -1, min: 100 * time.Millisecond, max: 125 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CalculateBackoff(tt.attempt, 100*time.Millisecond, time.Second, 0.25)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	assert.Equal(t, DefaultMaxRetries, nilCfg.GetMaxRetries())
	assert.Equal(t, DefaultInitialBackoff, nilCfg.GetInitialBackoff())
	assert.Equal(t, DefaultMaxBackoff, nilCfg.GetMaxBackoff())
	assert.Equal(t, DefaultJitterFactor, nilCfg.GetJitterFactor())

	cfg := &Config{JitterFactor: 3}
	assert.Equal(t, MaxJitterFactor, cfg.GetJitterFactor())
	assert.Equal(t, DefaultConfig().MaxRetries, DefaultMaxRetries)
}
