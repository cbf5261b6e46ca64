package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MiddlewareMetrics holds Prometheus metrics for the pipeline builder
// and the built-in middleware.
type MiddlewareMetrics struct {
	pipelinesBuilt      prometheus.Counter
	unresolvedTotal     *prometheus.CounterVec
	conditionSkipped    *prometheus.CounterVec
	conditionErrors     *prometheus.CounterVec
	rateLimitAllowed    *prometheus.CounterVec
	rateLimitRejected   *prometheus.CounterVec
	circuitBreakerState *prometheus.CounterVec
	circuitTransitions  *prometheus.CounterVec
	timeoutsTotal       *prometheus.CounterVec
	bodyLimitRejected   prometheus.Counter
	panicsRecovered     prometheus.Counter
	corsRequestsTotal   *prometheus.CounterVec
}

var (
	middlewareMetrics     *MiddlewareMetrics
	middlewareMetricsOnce sync.Once
)

// GetMiddlewareMetrics returns the singleton middleware metrics
// instance.
func GetMiddlewareMetrics() *MiddlewareMetrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetrics = newMiddlewareMetrics()
	})
	return middlewareMetrics
}

//nolint:funlen // metric initialization requires many declarations
func newMiddlewareMetrics() *MiddlewareMetrics {
	return &MiddlewareMetrics{
		pipelinesBuilt: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "pipelines_built_total",
				Help:      "Total number of route pipelines built",
			},
		),
		unresolvedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "unresolved_total",
				Help: "Total number of middleware identifiers " +
					"replaced by a pass-through stage",
			},
			[]string{"middleware"},
		),
		conditionSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "condition_skipped_total",
				Help: "Total number of stages skipped " +
					"because their condition was false",
			},
			[]string{"middleware"},
		),
		conditionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "condition_errors_total",
				Help: "Total number of condition " +
					"evaluation errors",
			},
			[]string{"middleware"},
		),
		rateLimitAllowed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "rate_limit_allowed_total",
				Help: "Total number of requests " +
					"allowed by rate limiter",
			},
			[]string{"route"},
		),
		rateLimitRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help: "Total number of requests " +
					"rejected by rate limiter",
			},
			[]string{"route"},
		),
		circuitBreakerState: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name: "circuit_breaker_" +
					"requests_total",
				Help: "Total number of requests " +
					"through circuit breaker by state",
			},
			[]string{"name", "state"},
		),
		circuitTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name: "circuit_breaker_" +
					"transitions_total",
				Help: "Total number of circuit " +
					"breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
		timeoutsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "request_timeouts_total",
				Help: "Total number of request " +
					"timeouts",
			},
			[]string{"route"},
		),
		bodyLimitRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "body_limit_rejected_total",
				Help: "Total number of requests " +
					"rejected due to body size limit",
			},
		),
		panicsRecovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help: "Total number of panics " +
					"recovered",
			},
		),
		corsRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avarouter",
				Subsystem: "middleware",
				Name:      "cors_requests_total",
				Help: "Total number of CORS " +
					"requests by type",
			},
			[]string{"type"},
		),
	}
}

// MustRegisterMetrics registers the middleware collectors with a
// custom registry, in addition to the default one.
func MustRegisterMetrics(registry *prometheus.Registry) {
	m := GetMiddlewareMetrics()
	registry.MustRegister(
		m.pipelinesBuilt,
		m.unresolvedTotal,
		m.conditionSkipped,
		m.conditionErrors,
		m.rateLimitAllowed,
		m.rateLimitRejected,
		m.circuitBreakerState,
		m.circuitTransitions,
		m.timeoutsTotal,
		m.bodyLimitRejected,
		m.panicsRecovered,
		m.corsRequestsTotal,
	)
}
