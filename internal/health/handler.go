package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// Default timeout values for health checks.
const (
	DefaultReadinessProbeTimeout = 5 * time.Second
	DefaultLivenessProbeTimeout  = 10 * time.Second
)

// Probe statuses.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDraining = "draining"
)

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Version   string                  `json:"version,omitempty"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler handles health check requests.
type Handler struct {
	checks           []HealthCheck
	logger           observability.Logger
	mu               sync.RWMutex
	startTime        time.Time
	version          string
	readinessTimeout time.Duration
	livenessTimeout  time.Duration
	draining         atomic.Bool
	metrics          *Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithVersion sets the version reported by the health probe.
func WithVersion(version string) Option {
	return func(h *Handler) {
		h.version = version
	}
}

// WithTimeouts overrides the probe timeouts. Zero keeps the default.
func WithTimeouts(readiness, liveness time.Duration) Option {
	return func(h *Handler) {
		if readiness > 0 {
			h.readinessTimeout = readiness
		}
		if liveness > 0 {
			h.livenessTimeout = liveness
		}
	}
}

// NewHandler creates a new health handler.
func NewHandler(logger observability.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	h := &Handler{
		logger:           logger,
		startTime:        time.Now(),
		readinessTimeout: DefaultReadinessProbeTimeout,
		livenessTimeout:  DefaultLivenessProbeTimeout,
		metrics:          GetMetrics(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddCheck adds a health check.
func (h *Handler) AddCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// SetDraining marks the process as shutting down. Readiness fails from now
// on while liveness keeps passing.
func (h *Handler) SetDraining(draining bool) {
	h.draining.Store(draining)
}

// IsDraining reports whether SetDraining(true) was called.
func (h *Handler) IsDraining() bool {
	return h.draining.Load()
}

// LivenessHandler reports that the process is running.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.metrics.checksTotal.WithLabelValues("liveness").Inc()
		c.JSON(http.StatusOK, gin.H{
			"status":    StatusOK,
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler reports whether the gateway should receive traffic.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.metrics.checksTotal.WithLabelValues("readiness").Inc()
		if h.IsDraining() {
			c.JSON(http.StatusServiceUnavailable, &HealthStatus{
				Status:    StatusDraining,
				Timestamp: time.Now().UTC(),
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.readinessTimeout)
		defer cancel()

		status := h.runChecks(ctx)
		c.JSON(statusCode(status), status)
	}
}

// HealthHandler returns the detailed status with every check result.
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.metrics.checksTotal.WithLabelValues("health").Inc()
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.livenessTimeout)
		defer cancel()

		status := h.runChecks(ctx)
		status.Uptime = time.Since(h.startTime).Round(time.Second).String()
		status.Version = h.version
		c.JSON(statusCode(status), status)
	}
}

func statusCode(status *HealthStatus) int {
	if status.Status != StatusOK {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// runChecks runs all health checks concurrently.
func (h *Handler) runChecks(ctx context.Context) *HealthStatus {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := &HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult, len(checks)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:    StatusOK,
				Duration:  duration.String(),
				Timestamp: time.Now().UTC(),
			}
			if err != nil {
				result.Status = StatusError
				result.Error = err.Error()
				h.logger.Warn("health check failed",
					observability.String("check", c.Name()),
					observability.Error(err),
					observability.Duration("duration", duration),
				)
			}
			h.metrics.setStatus(c.Name(), err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status.Status = StatusError
			}
			status.Checks[c.Name()] = result
		}(check)
	}
	wg.Wait()

	return status
}

// RegisterRoutes registers the probe routes on a gin engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.HealthHandler())
	engine.GET("/ready", h.ReadinessHandler())
	engine.GET("/live", h.LivenessHandler())
}
