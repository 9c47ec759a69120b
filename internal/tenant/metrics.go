package tenant

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for tenant resolution.
type Metrics struct {
	resolutionsTotal *prometheus.CounterVec
	lookupDuration   *prometheus.HistogramVec
	breakerState     prometheus.Gauge
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton tenant metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			resolutionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "edgegate",
					Subsystem: "tenant",
					Name:      "resolutions_total",
					Help:      "Total number of tenant resolutions by source and outcome",
				},
				[]string{"source", "outcome"},
			),
			lookupDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "edgegate",
					Subsystem: "tenant",
					Name:      "directory_lookup_duration_seconds",
					Help:      "Duration of tenant directory lookups",
					Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
				},
				[]string{"outcome"},
			),
			breakerState: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "edgegate",
					Subsystem: "tenant",
					Name:      "directory_breaker_state",
					Help:      "Tenant directory breaker state (0=closed, 1=half-open, 2=open)",
				},
			),
		}
	})
	return metricsInstance
}

// MustRegister registers the tenant collectors with registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.resolutionsTotal, m.lookupDuration, m.breakerState)
}

func (m *Metrics) observeLookup(outcome string, start time.Time) {
	m.lookupDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
