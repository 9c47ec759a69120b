package observability

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unclassifiedRoute is the label value used for requests that never reached
// route classification (compliance rejects, panics), ensuring bounded
// cardinality.
const unclassifiedRoute = "none"

// Metrics holds the HTTP-level Prometheus metrics for the gateway.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	rateLimitHits   prometheus.Counter
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edgegate"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route_class", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route_class"},
	)

	m.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	m.rateLimitHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the gateway",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the gateway in unix seconds",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.rateLimitHits,
		m.buildInfo,
		m.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.startTime.SetToCurrentTime()

	return m
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, routeClass string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, routeClass, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, routeClass).Observe(duration.Seconds())
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHits.Inc()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry. Other packages register their
// collectors here so they appear on the same /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// routeClassHolder is placed in the context by MetricsMiddleware and filled
// in by the pipeline once the route has been classified.
type routeClassHolder struct {
	value atomic.Value
}

type routeClassKey struct{}

// SetRouteClass records the route classification of the current request so
// that outer middleware can label metrics with it. It is a no-op when the
// request did not pass through MetricsMiddleware.
func SetRouteClass(ctx context.Context, class string) {
	if h, ok := ctx.Value(routeClassKey{}).(*routeClassHolder); ok {
		h.value.Store(class)
	}
}

// RouteClassFromContext returns the classification recorded by SetRouteClass.
func RouteClassFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(routeClassKey{}).(*routeClassHolder); ok {
		if v, ok := h.value.Load().(string); ok && v != "" {
			return v
		}
	}
	return unclassifiedRoute
}

// MetricsMiddleware returns a middleware that records request metrics.
// The route label is the route classification, not the raw path, so that
// dynamic path segments cannot blow up cardinality.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			holder := &routeClassHolder{}
			ctx := context.WithValue(r.Context(), routeClassKey{}, holder)

			rw := &metricsResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			metrics.activeRequests.Inc()
			next.ServeHTTP(rw, r.WithContext(ctx))
			metrics.activeRequests.Dec()

			metrics.RecordRequest(r.Method, RouteClassFromContext(ctx), rw.status, time.Since(start))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status.
type metricsResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader captures the status code.
func (rw *metricsResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher interface for streaming support.
func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker interface for WebSocket support.
func (rw *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
