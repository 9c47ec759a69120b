package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for health checks.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

var (
	healthMetrics     *Metrics
	healthMetricsOnce sync.Once
)

// GetMetrics returns the singleton health metrics instance.
func GetMetrics() *Metrics {
	healthMetricsOnce.Do(func() {
		healthMetrics = &Metrics{
			checksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "edgegate",
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of health probes served",
			}, []string{"type"}),
			checkStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "edgegate",
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current health check status (1=healthy, 0=unhealthy)",
			}, []string{"check"}),
		}
	})
	return healthMetrics
}

// MustRegister registers the health collectors with registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.checksTotal, m.checkStatus)
}

func (m *Metrics) setStatus(check string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}
