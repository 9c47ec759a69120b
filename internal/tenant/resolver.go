package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/edgegate/internal/cache"
	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

const (
	tracerName = "edgegate/tenant"

	// CacheKeyPrefix prefixes tenant entries in the shared cache.
	CacheKeyPrefix = "tenant:"
)

// Resolution sources reported in metrics.
const (
	sourceDev       = "dev"
	sourceRequest   = "request"
	sourceCache     = "cache"
	sourceDirectory = "directory"
)

// Resolver maps request hosts to tenants.
type Resolver struct {
	devHosts  map[string]struct{}
	demo      *Tenant
	directory Directory
	cache     cache.Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	logger    observability.Logger
	metrics   *Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables the cross-request cache.
func WithCache(c cache.Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver backed by directory.
func NewResolver(cfg *config.TenantConfig, directory Directory, opts ...Option) *Resolver {
	if cfg == nil {
		cfg = &config.DefaultConfig().Tenant
	}

	r := &Resolver{
		devHosts:  make(map[string]struct{}, len(cfg.DevHosts)),
		demo:      FromEntry(&cfg.DemoTenant),
		directory: directory,
		cacheTTL:  cfg.CacheTTL.Duration(),
		timeout:   cfg.ResolveTimeout.Duration(),
		logger:    observability.NopLogger(),
		metrics:   GetMetrics(),
	}
	for _, h := range cfg.DevHosts {
		r.devHosts[util.NormalizeHost(h)] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsDevHost reports whether host resolves to the demo tenant.
func (r *Resolver) IsDevHost(host string) bool {
	_, ok := r.devHosts[util.NormalizeHost(host)]
	return ok
}

// Resolve returns the tenant owning host. Within a request scope (see
// WithScope) the directory is consulted at most once per host.
func (r *Resolver) Resolve(ctx context.Context, host string) (*Tenant, error) {
	domain := util.NormalizeHost(host)

	if s := scopeFrom(ctx); s != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.done && s.domain == domain {
			r.metrics.resolutionsTotal.WithLabelValues(sourceRequest, outcomeOf(s.err)).Inc()
			return s.tenant, s.err
		}
		t, err := r.resolve(ctx, domain)
		s.domain, s.tenant, s.err, s.done = domain, t, err, true
		return t, err
	}

	return r.resolve(ctx, domain)
}

func (r *Resolver) resolve(ctx context.Context, domain string) (*Tenant, error) {
	if _, ok := r.devHosts[domain]; ok {
		r.metrics.resolutionsTotal.WithLabelValues(sourceDev, "ok").Inc()
		cp := *r.demo
		return &cp, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "tenant.Resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("tenant.host", domain)),
	)
	defer span.End()

	t, source, err := r.lookup(ctx, domain)
	if err == nil && !t.Active() {
		err = fmt.Errorf("%w: status %s", ErrTenantSuspended, t.Status)
		t = nil
	}
	r.metrics.resolutionsTotal.WithLabelValues(source, outcomeOf(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &ResolutionError{Host: domain, Err: err}
	}

	span.SetAttributes(attribute.String("tenant.id", t.ID))
	return t, nil
}

func (r *Resolver) lookup(ctx context.Context, domain string) (*Tenant, string, error) {
	if domain == "" {
		return nil, sourceDirectory, ErrTenantNotFound
	}

	if t := r.fromCache(ctx, domain); t != nil {
		return t, sourceCache, nil
	}

	if r.directory == nil {
		return nil, sourceDirectory, ErrTenantNotFound
	}

	lookupCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	t, err := r.directory.Lookup(lookupCtx, domain)
	switch {
	case err == nil && t == nil:
		err = ErrTenantNotFound
	case err != nil && !errors.Is(err, ErrTenantNotFound) && !errors.Is(err, ErrTenantUnavailable):
		r.logger.Warn("tenant directory lookup failed",
			observability.String("host", domain),
			observability.Error(err),
		)
		err = fmt.Errorf("%w: %w", ErrTenantUnavailable, err)
	}
	r.metrics.observeLookup(outcomeOf(err), start)
	if err != nil {
		return nil, sourceDirectory, err
	}

	if t.Active() {
		r.toCache(ctx, domain, t)
	}
	return t, sourceDirectory, nil
}

func (r *Resolver) fromCache(ctx context.Context, domain string) *Tenant {
	if r.cache == nil {
		return nil
	}
	data, err := r.cache.Get(ctx, CacheKeyPrefix+domain)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Debug("tenant cache read failed",
				observability.String("host", domain),
				observability.Error(err),
			)
		}
		return nil
	}
	var t Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil
	}
	return &t
}

func (r *Resolver) toCache(ctx context.Context, domain string, t *Tenant) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, CacheKeyPrefix+domain, data, r.cacheTTL); err != nil {
		r.logger.Debug("tenant cache write failed",
			observability.String("host", domain),
			observability.Error(err),
		)
	}
}

// Invalidate drops the cached tenant for host.
func (r *Resolver) Invalidate(ctx context.Context, host string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, CacheKeyPrefix+util.NormalizeHost(host))
}

// InvalidateAll drops every cached tenant.
func (r *Resolver) InvalidateAll(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	n, err := r.cache.DeletePrefix(ctx, CacheKeyPrefix)
	if err != nil {
		return err
	}
	r.logger.Debug("tenant cache invalidated", observability.Int("entries", n))
	return nil
}

// Close closes the directory.
func (r *Resolver) Close() error {
	if r.directory == nil {
		return nil
	}
	return r.directory.Close()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTenantNotFound):
		return "not_found"
	case errors.Is(err, ErrTenantSuspended):
		return "suspended"
	default:
		return "unavailable"
	}
}
