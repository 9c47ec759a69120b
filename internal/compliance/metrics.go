package compliance

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for compliance checks.
type Metrics struct {
	checksTotal     *prometheus.CounterVec
	ruleErrorsTotal *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton compliance metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			checksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "edgegate",
					Subsystem: "compliance",
					Name:      "checks_total",
					Help:      "Total number of compliance checks by outcome and reason",
				},
				[]string{"outcome", "reason"},
			),
			ruleErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "edgegate",
					Subsystem: "compliance",
					Name:      "rule_errors_total",
					Help:      "Total number of expression rule evaluation errors",
				},
				[]string{"rule"},
			),
		}
	})
	return metricsInstance
}

// MustRegister registers the compliance collectors with registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.checksTotal, m.ruleErrorsTotal)
}

func (m *Metrics) record(d Decision) {
	if d.Blocked {
		m.checksTotal.WithLabelValues("blocked", string(d.Reason)).Inc()
		return
	}
	m.checksTotal.WithLabelValues("pass", "").Inc()
}
