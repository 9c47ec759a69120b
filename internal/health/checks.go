package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/cache"
)

// HealthCheck defines the interface for health checks.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthCheck.
type HealthCheckFunc struct {
	name      string
	checkFunc func(ctx context.Context) error
}

// Name returns the name of the health check.
func (f *HealthCheckFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *HealthCheckFunc) Check(ctx context.Context) error {
	return f.checkFunc(ctx)
}

// NewHealthCheckFunc creates a new health check function.
func NewHealthCheckFunc(name string, check func(ctx context.Context) error) *HealthCheckFunc {
	return &HealthCheckFunc{name: name, checkFunc: check}
}

// cacheProbeKey is looked up by CacheHealthCheck. It never exists.
const cacheProbeKey = "health:probe"

// CacheHealthCheck reports whether the key-value store answers. A miss is a
// healthy answer.
func CacheHealthCheck(name string, c cache.Cache) *HealthCheckFunc {
	return NewHealthCheckFunc(name, func(ctx context.Context) error {
		if c == nil {
			return errors.New("cache is not configured")
		}
		if _, err := c.Exists(ctx, cacheProbeKey); err != nil {
			return fmt.Errorf("cache probe failed: %w", err)
		}
		return nil
	})
}

// CachedHealthCheck caches health check results for ttl so that frequent
// probes do not hammer a dependency.
type CachedHealthCheck struct {
	check      HealthCheck
	cacheTTL   time.Duration
	mu         sync.Mutex
	lastCheck  time.Time
	lastResult error
	now        func() time.Time
}

// NewCachedHealthCheck creates a new cached health check.
func NewCachedHealthCheck(check HealthCheck, cacheTTL time.Duration) *CachedHealthCheck {
	return &CachedHealthCheck{check: check, cacheTTL: cacheTTL, now: time.Now}
}

// Name returns the name of the wrapped check.
func (c *CachedHealthCheck) Name() string {
	return c.check.Name()
}

// Check returns the cached result or runs the wrapped check.
func (c *CachedHealthCheck) Check(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCheck.IsZero() && c.now().Sub(c.lastCheck) < c.cacheTTL {
		return c.lastResult
	}
	c.lastResult = c.check.Check(ctx)
	c.lastCheck = c.now()
	return c.lastResult
}
