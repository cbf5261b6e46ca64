package cache

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCacheMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetCacheMetrics(), GetCacheMetrics())
}

func TestCacheMetrics_MustRegister(t *testing.T) {
	m := GetCacheMetrics()
	m.Init()

	registry := prometheus.NewRegistry()
	assert.NotPanics(t, func() { m.MustRegister(registry) })

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["avarouter_cache_hits_total"])
	assert.True(t, names["avarouter_cache_operation_duration_seconds"])
}

func TestOperation_CountsHitsAndErrors(t *testing.T) {
	m := GetCacheMetrics()
	c := newTestMemoryCache(t, 10)
	ctx := context.Background()

	hitsBefore := testutil.ToFloat64(m.hitsTotal.WithLabelValues(backendMemory))
	missesBefore := testutil.ToFloat64(m.missesTotal.WithLabelValues(backendMemory))
	errorsBefore := testutil.ToFloat64(m.errorsTotal.WithLabelValues(backendMemory, "Get"))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "absent")

	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(m.hitsTotal.WithLabelValues(backendMemory)))
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(m.missesTotal.WithLabelValues(backendMemory)))
	// A miss is not an error.
	assert.Equal(t, errorsBefore, testutil.ToFloat64(m.errorsTotal.WithLabelValues(backendMemory, "Get")))
}
