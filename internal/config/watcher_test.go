package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

const minimalRouteYAML = `
spec:
  routes:
    - name: home
      methods: [GET]
      path: /
      handler: ok
`

const invalidRouteYAML = `
spec:
  routes:
    - methods: []
      path: ""
`

func writeRouteFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	path := writeRouteFile(t, minimalRouteYAML)

	w, err := NewWatcher(path, func(*RouterConfig) {},
		WithDebounceDelay(10*time.Millisecond),
		WithLogger(observability.NopLogger()),
		WithErrorCallback(func(error) {}),
	)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.Equal(t, path, w.path)
	assert.Equal(t, 10*time.Millisecond, w.debounceDelay)
	assert.NotNil(t, w.errorCallback)
	assert.Nil(t, w.GetLastConfig())
}

func TestWatcher_StartInvalid(t *testing.T) {
	t.Parallel()

	path := writeRouteFile(t, invalidRouteYAML)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	t.Parallel()

	path := writeRouteFile(t, minimalRouteYAML)

	var mu sync.Mutex
	var received []*RouterConfig

	w, err := NewWatcher(path, func(cfg *RouterConfig) {
		mu.Lock()
		received = append(received, cfg)
		mu.Unlock()
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NotNil(t, w.GetLastConfig())
	assert.Equal(t, 1, w.GetLastConfig().CountRoutes())

	updated := minimalRouteYAML + `    - name: about
      methods: [GET]
      path: /about
      handler: ok
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0 && received[len(received)-1].CountRoutes() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, w.GetLastConfig().CountRoutes())
}

func TestWatcher_ReloadErrorKeepsLastConfig(t *testing.T) {
	t.Parallel()

	path := writeRouteFile(t, minimalRouteYAML)

	errCh := make(chan error, 4)
	w, err := NewWatcher(path, nil,
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(err error) { errCh <- err }),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte(invalidRouteYAML), 0o600))

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload error")
	}
	assert.Equal(t, 1, w.GetLastConfig().CountRoutes())
}

func TestWatcher_ForceReload(t *testing.T) {
	t.Parallel()

	path := writeRouteFile(t, minimalRouteYAML)

	calls := 0
	w, err := NewWatcher(path, func(*RouterConfig) { calls++ })
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.ForceReload())
	assert.Equal(t, 1, calls)

	require.NoError(t, os.WriteFile(path, []byte(invalidRouteYAML), 0o600))
	assert.Error(t, w.ForceReload())
	assert.Equal(t, 1, calls)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	path := writeRouteFile(t, minimalRouteYAML)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
