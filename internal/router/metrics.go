package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result cache outcomes.
const (
	resultCacheHit             = "hit"
	resultCacheMiss            = "miss"
	resultCacheRehydrationMiss = "rehydration_miss"
	resultCacheStoreError      = "store_error"
)

// routerMetrics contains Prometheus metrics for the routing engine.
type routerMetrics struct {
	strategyHits     *prometheus.CounterVec
	resultCache      *prometheus.CounterVec
	routes           prometheus.Gauge
	snapshotRebuilds prometheus.Counter

	regexCacheHits      prometheus.Counter
	regexCacheMisses    prometheus.Counter
	regexCacheEvictions prometheus.Counter
	regexCacheSize      prometheus.Gauge
}

var (
	routerMetricsInstance *routerMetrics
	routerMetricsOnce     sync.Once
)

// getRouterMetrics returns the singleton router metrics instance.
func getRouterMetrics() *routerMetrics {
	routerMetricsOnce.Do(func() {
		routerMetricsInstance = &routerMetrics{
			strategyHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "strategy_hits_total",
					Help:      "Total number of lookups answered by each matcher strategy",
				},
				[]string{"strategy"},
			),
			resultCache: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "result_cache_total",
					Help:      "Total number of result cache lookups by outcome",
				},
				[]string{"result"},
			),
			routes: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "routes",
					Help:      "Number of routes in the most recently built route table",
				},
			),
			snapshotRebuilds: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "snapshot_rebuilds_total",
					Help:      "Total number of route table snapshot rebuilds",
				},
			),
			regexCacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "regex_cache_hits_total",
					Help:      "Total number of regex cache hits",
				},
			),
			regexCacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "regex_cache_misses_total",
					Help:      "Total number of regex cache misses",
				},
			),
			regexCacheEvictions: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "regex_cache_evictions_total",
					Help:      "Total number of regex cache evictions",
				},
			),
			regexCacheSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "avarouter",
					Subsystem: "router",
					Name:      "regex_cache_size",
					Help:      "Current number of entries in the regex cache",
				},
			),
		}
	})
	return routerMetricsInstance
}

// MustRegisterMetrics registers the router collectors with a custom
// registry, in addition to the default one.
func MustRegisterMetrics(registry *prometheus.Registry) {
	m := getRouterMetrics()
	registry.MustRegister(
		m.strategyHits,
		m.resultCache,
		m.routes,
		m.snapshotRebuilds,
		m.regexCacheHits,
		m.regexCacheMisses,
		m.regexCacheEvictions,
		m.regexCacheSize,
	)
}
