package audit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes.
const (
	outcomeWritten = "written"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)

// Metrics contains audit sink metrics.
type Metrics struct {
	recordsTotal    *prometheus.CounterVec
	collisionsTotal prometheus.Counter
	queueDepth      prometheus.Gauge
}

// NewMetrics creates audit metrics registered with registerer. A nil
// registerer uses prometheus.DefaultRegisterer. Duplicate registration is
// ignored, so several sinks may share one registry.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "edgegate"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "records_total",
				Help:      "Total number of compliance violations by outcome",
			},
			[]string{"outcome"},
		),
		collisionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "key_collisions_total",
				Help:      "Total number of audit ids skipped because the key was taken",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "queue_depth",
				Help:      "Number of violations waiting to be written",
			},
		),
	}

	m.recordsTotal = registerOrExisting(registerer, m.recordsTotal).(*prometheus.CounterVec)
	m.collisionsTotal = registerOrExisting(registerer, m.collisionsTotal).(prometheus.Counter)
	m.queueDepth = registerOrExisting(registerer, m.queueDepth).(prometheus.Gauge)

	for _, o := range []string{outcomeWritten, outcomeFailed, outcomeDropped} {
		m.recordsTotal.WithLabelValues(o)
	}
	return m
}

func registerOrExisting(registerer prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	var are prometheus.AlreadyRegisteredError
	if err := registerer.Register(c); errors.As(err, &are) {
		return are.ExistingCollector
	}
	return c
}
