package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outer middleware.
type Metrics struct {
	rateLimitAllowed  prometheus.Counter
	rateLimitRejected prometheus.Counter
	panicsRecovered   prometheus.Counter
}

var (
	middlewareMetrics     *Metrics
	middlewareMetricsOnce sync.Once
)

// GetMetrics returns the singleton middleware metrics instance.
func GetMetrics() *Metrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetrics = &Metrics{
			rateLimitAllowed: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "edgegate",
				Subsystem: "middleware",
				Name:      "rate_limit_allowed_total",
				Help:      "Total number of requests allowed by the rate limiter",
			}),
			rateLimitRejected: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "edgegate",
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help:      "Total number of requests rejected by the rate limiter",
			}),
			panicsRecovered: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "edgegate",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered",
			}),
		}
	})
	return middlewareMetrics
}

// MustRegister registers the middleware metrics with registry. The metrics
// are created once per process through promauto.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.rateLimitAllowed, m.rateLimitRejected, m.panicsRecovered)
}
