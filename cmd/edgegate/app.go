package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/audit"
	"github.com/vyrodovalexey/edgegate/internal/cache"
	"github.com/vyrodovalexey/edgegate/internal/compliance"
	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/gateway"
	"github.com/vyrodovalexey/edgegate/internal/health"
	"github.com/vyrodovalexey/edgegate/internal/middleware"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/pipeline"
	"github.com/vyrodovalexey/edgegate/internal/secrets"
	"github.com/vyrodovalexey/edgegate/internal/tenant"
	"github.com/vyrodovalexey/edgegate/internal/upstream"
)

const (
	metricsNamespace   = "edgegate"
	cacheCheckTTL      = 2 * time.Second
	readinessTimeout   = 5 * time.Second
	livenessTimeout    = time.Second
	defaultResolveWait = 2 * time.Second
)

// application holds all application components.
type application struct {
	config      *config.Config
	logger      observability.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	store       cache.Cache
	auditStore  cache.Cache
	resolver    *tenant.Resolver
	sink        *audit.Sink
	pipeline    *pipeline.Pipeline
	rateLimiter *middleware.RateLimiter
	health      *health.Handler
	gateway     *gateway.Gateway
}

// initApplication wires every component from cfg. On error, whatever was
// already opened is closed again.
func initApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (app *application, err error) {
	app = &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.closeResources(context.Background())
			app = nil
		}
	}()

	app.metrics = observability.NewMetrics(metricsNamespace)
	app.metrics.SetBuildInfo(version, gitCommit, buildTime)
	registerMetrics(app.metrics)

	app.tracer, err = observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return app, fmt.Errorf("failed to create tracer: %w", err)
	}

	var storeOpts []cache.Option
	if cfg.Vault.Enabled {
		provider, err := secrets.NewVaultProvider(&cfg.Vault, logger)
		if err != nil {
			return app, fmt.Errorf("failed to create vault provider: %w", err)
		}
		storeOpts = append(storeOpts, cache.WithSecrets(provider))
	}

	if app.store, err = initStore("cache", &cfg.Cache, logger, storeOpts); err != nil {
		return app, err
	}

	if app.resolver, err = initResolver(ctx, cfg, app.store, logger); err != nil {
		return app, err
	}

	var recorder audit.Recorder = audit.Discard
	if cfg.Audit.Enabled {
		if app.auditStore, err = initStore("audit store", cfg.Audit.Store, logger, storeOpts); err != nil {
			return app, err
		}
		app.sink = audit.NewSink(&cfg.Audit, app.auditStore,
			audit.WithLogger(logger),
			audit.WithMetrics(audit.NewMetrics(metricsNamespace, app.metrics.Registry())),
		)
		recorder = app.sink
	}

	public, err := app.buildPublicHandler(recorder)
	if err != nil {
		return app, err
	}

	app.health = health.NewHandler(logger,
		health.WithVersion(version),
		health.WithTimeouts(readinessTimeout, livenessTimeout),
	)
	app.health.AddCheck(health.NewCachedHealthCheck(health.CacheHealthCheck("cache", app.store), cacheCheckTTL))
	if app.auditStore != nil {
		app.health.AddCheck(health.NewCachedHealthCheck(
			health.CacheHealthCheck("audit_store", app.auditStore), cacheCheckTTL))
	}

	var lister health.AuditLister
	if app.sink != nil {
		lister = app.sink
	}
	ops := health.NewOpsEngine(app.health, app.metrics.Handler(), lister)

	app.gateway, err = gateway.New(cfg, public, ops,
		gateway.WithLogger(logger),
		gateway.WithShutdownTimeout(cfg.Server.ShutdownTimeout.Duration()),
		gateway.WithDrainHook(func() { app.health.SetDraining(true) }),
	)
	if err != nil {
		return app, fmt.Errorf("failed to create gateway: %w", err)
	}

	return app, nil
}

// registerMetrics adds every package collector to the gateway registry.
func registerMetrics(m *observability.Metrics) {
	registry := m.Registry()
	cache.GetCacheMetrics().MustRegister(registry)
	compliance.GetMetrics().MustRegister(registry)
	tenant.GetMetrics().MustRegister(registry)
	middleware.GetMetrics().MustRegister(registry)
	pipeline.GetMetrics().MustRegister(registry)
	health.GetMetrics().MustRegister(registry)
}

// initStore opens one key-value store. The tenant cache and the audit sink
// each get their own.
func initStore(name string, cfg *config.CacheConfig, logger observability.Logger, opts []cache.Option) (cache.Cache, error) {
	if cfg == nil {
		cfg = &config.CacheConfig{Type: config.CacheTypeMemory, NoEviction: true}
	}
	store, err := cache.New(cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return store, nil
}

func initResolver(
	ctx context.Context,
	cfg *config.Config,
	store cache.Cache,
	logger observability.Logger,
) (*tenant.Resolver, error) {
	timeout := cfg.Tenant.ResolveTimeout.Duration()
	if timeout <= 0 {
		timeout = defaultResolveWait
	}

	dir, err := tenant.NewDirectory(ctx, &cfg.Tenant.Directory, timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant directory: %w", err)
	}
	logger.Info("tenant directory ready", observability.String("type", cfg.Tenant.Directory.Type))

	return tenant.NewResolver(&cfg.Tenant, dir,
		tenant.WithCache(store),
		tenant.WithLogger(logger),
	), nil
}

// buildPublicHandler assembles the middleware chain in front of the
// interceptor pipeline and the upstream application. Logging sits inside
// the metrics middleware so it sees the route class the pipeline records.
// Rate limiting runs inside the pipeline after the compliance stage.
func (app *application) buildPublicHandler(recorder audit.Recorder) (http.Handler, error) {
	cfg := app.config
	logger := app.logger

	if _, err := buildRouteTable(cfg); err != nil {
		return nil, err
	}
	snap, err := pipeline.BuildSnapshot(cfg, logger)
	if err != nil {
		return nil, err
	}

	next, err := upstream.New(&cfg.Upstream,
		upstream.WithProxyLogger(logger),
		upstream.WithStrippedResponseHeaders(middleware.ManagedHeaders(&cfg.Headers)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream: %w", err)
	}
	if cfg.Upstream.URL == "" {
		logger.Warn("no upstream configured, serving echo handler")
	}

	ips := middleware.NewClientIPExtractor(cfg.Server.TrustedProxies)
	rateLimit, limiter := middleware.RateLimitFromConfig(&cfg.RateLimit, ips, logger,
		middleware.WithRejectHook(app.metrics.RecordRateLimitHit),
	)
	app.rateLimiter = limiter

	app.pipeline, err = pipeline.New(snap, app.resolver, next,
		pipeline.WithAudit(recorder),
		pipeline.WithAdmission(rateLimit),
		pipeline.WithClientIP(ips.Extract),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	chain := []func(http.Handler) http.Handler{
		observability.MetricsMiddleware(app.metrics),
		middleware.Recovery(logger),
		observability.TracingMiddleware(app.tracer),
		middleware.RequestID(),
		middleware.Logging(logger, ips),
		middleware.Posture(&cfg.Headers),
		middleware.SecurityHeaders(&cfg.Headers.Security),
	}

	var h http.Handler = app.pipeline
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h, nil
}

// closeResources releases everything opened by initApplication in reverse
// order. Errors are logged.
func (app *application) closeResources(ctx context.Context) {
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}
	if app.sink != nil {
		if err := app.sink.Close(ctx); err != nil {
			app.logger.Error("failed to flush audit sink", observability.Error(err))
		}
	}
	if app.resolver != nil {
		if err := app.resolver.Close(); err != nil {
			app.logger.Error("failed to close tenant directory", observability.Error(err))
		}
	}
	if app.auditStore != nil {
		if err := app.auditStore.Close(); err != nil {
			app.logger.Error("failed to close audit store", observability.Error(err))
		}
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Error("failed to close cache", observability.Error(err))
		}
	}
	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			app.logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
