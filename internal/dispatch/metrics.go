package dispatch

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dispatchMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	metricsInstance *dispatchMetrics
	metricsOnce     sync.Once
)

func getDispatchMetrics() *dispatchMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &dispatchMetrics{
			total: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "avarouter",
					Subsystem: "dispatch",
					Name:      "total",
					Help:      "Total number of dispatched requests by outcome",
				},
				[]string{"outcome"},
			),
			duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "avarouter",
					Subsystem: "dispatch",
					Name:      "duration_seconds",
					Help:      "Dispatch duration in seconds by outcome",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"outcome"},
			),
		}
	})
	return metricsInstance
}

func (m *dispatchMetrics) observe(outcome string, elapsed time.Duration) {
	m.total.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// MustRegisterMetrics registers the dispatch collectors with a custom
// registry, in addition to the default one.
func MustRegisterMetrics(registry *prometheus.Registry) {
	m := getDispatchMetrics()
	registry.MustRegister(m.total, m.duration)
}
