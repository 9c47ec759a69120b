package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages, used as metric labels.
const (
	stageCompliance = "compliance"
	stageClassify   = "classify"
	stageTenant     = "tenant"
	stageAuth       = "auth"
	stageForward    = "forward"
)

// Metrics holds the pipeline decision collectors.
type Metrics struct {
	decisionsTotal *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	reloadsTotal   *prometheus.CounterVec
}

var (
	pipelineMetrics     *Metrics
	pipelineMetricsOnce sync.Once
)

// GetMetrics returns the singleton pipeline metrics.
func GetMetrics() *Metrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = &Metrics{
			decisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "edgegate",
				Subsystem: "pipeline",
				Name:      "decisions_total",
				Help:      "Pipeline decisions by stage and outcome",
			}, []string{"stage", "outcome"}),
			stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "edgegate",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2.5},
			}, []string{"stage"}),
			reloadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "edgegate",
				Subsystem: "pipeline",
				Name:      "reloads_total",
				Help:      "Snapshot reloads by result",
			}, []string{"result"}),
		}
	})
	return pipelineMetrics
}

// MustRegister registers the pipeline collectors with registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.decisionsTotal, m.stageDuration, m.reloadsTotal)
}

func (m *Metrics) decide(stage, outcome string, start time.Time) {
	m.decisionsTotal.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
