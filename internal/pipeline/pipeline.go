package pipeline

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/edgegate/internal/audit"
	"github.com/vyrodovalexey/edgegate/internal/auth"
	"github.com/vyrodovalexey/edgegate/internal/compliance"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/routing"
	"github.com/vyrodovalexey/edgegate/internal/tenant"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Headers set on requests forwarded upstream. Client supplied values are
// always removed first.
const (
	HeaderTenantID     = "X-Tenant-ID"
	HeaderTenantDomain = "X-Tenant-Domain"
)

// TenantResolver resolves the tenant owning a host.
type TenantResolver interface {
	Resolve(ctx context.Context, host string) (*tenant.Tenant, error)
}

// Pipeline is the http.Handler running the interceptor chain.
type Pipeline struct {
	snapshot atomic.Pointer[Snapshot]
	resolver TenantResolver
	audit    audit.Recorder
	clientIP func(*http.Request) string
	next     http.Handler
	admitted http.Handler
	admit    func(http.Handler) http.Handler
	logger   observability.Logger
	metrics  *Metrics
}

type snapshotKey struct{}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAudit sets the recorder receiving compliance violations.
func WithAudit(rec audit.Recorder) Option {
	return func(p *Pipeline) {
		if rec != nil {
			p.audit = rec
		}
	}
}

// WithClientIP sets how the client address of a request is determined for
// audit records.
func WithClientIP(fn func(*http.Request) string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.clientIP = fn
		}
	}
}

// WithAdmission sets a middleware run between the compliance stage and
// route classification, such as a rate limiter. Compliance blocks are
// audited before it sees the request.
func WithAdmission(mw func(http.Handler) http.Handler) Option {
	return func(p *Pipeline) {
		p.admit = mw
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline forwarding accepted requests to next.
func New(snap *Snapshot, resolver TenantResolver, next http.Handler, opts ...Option) (*Pipeline, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	p := &Pipeline{
		resolver: resolver,
		audit:    audit.Discard,
		clientIP: remoteIP,
		next:     next,
		logger:   observability.NopLogger(),
		metrics:  GetMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.snapshot.Store(snap)

	p.admitted = http.HandlerFunc(p.serveRoute)
	if p.admit != nil {
		p.admitted = p.admit(p.admitted)
	}

	return p, nil
}

// Snapshot returns the rule tables currently in use.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

// Reload replaces the rule tables. Requests already in flight finish with
// the snapshot they started with.
func (p *Pipeline) Reload(snap *Snapshot) error {
	if snap == nil {
		p.metrics.reloadsTotal.WithLabelValues("error").Inc()
		return ErrNilSnapshot
	}
	p.snapshot.Store(snap)
	p.metrics.reloadsTotal.WithLabelValues("success").Inc()
	p.logger.Info("pipeline snapshot reloaded",
		observability.Int("routes", len(snap.Table.Rules())),
		observability.String("default_policy", snap.Table.DefaultPolicy().String()),
	)
	return nil
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := p.snapshot.Load()
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)

	start := time.Now()
	decision := snap.Filter.Check(r)
	if decision.Blocked {
		p.metrics.decide(stageCompliance, "blocked", start)
		p.reject(w, r, snap, decision, requestID)
		return
	}
	p.metrics.decide(stageCompliance, "pass", start)

	p.admitted.ServeHTTP(w, r.WithContext(context.WithValue(ctx, snapshotKey{}, snap)))
}

// serveRoute runs classification, tenant resolution and the auth gate with
// the snapshot the compliance stage used.
func (p *Pipeline) serveRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, ok := ctx.Value(snapshotKey{}).(*Snapshot)
	if !ok {
		snap = p.snapshot.Load()
	}
	requestID := observability.RequestIDFromContext(ctx)
	span := trace.SpanFromContext(ctx)

	start := time.Now()
	route := snap.Table.Lookup(r.URL.EscapedPath())
	class := route.Classification
	if !route.Matched() {
		if snap.Table.DefaultPolicy() == routing.PolicyDeny {
			p.metrics.decide(stageClassify, routing.Unclassified.String(), start)
			observability.SetRouteClass(ctx, routing.Unclassified.String())
			p.logger.Debug("unclassified route rejected",
				observability.String("path", route.Path),
				observability.String("request_id", requestID),
			)
			util.WriteJSON(w, http.StatusNotFound, errorBody{Error: codeRouteUnclassified, RequestID: requestID})
			return
		}
		class = routing.Public
	}
	p.metrics.decide(stageClassify, class.String(), start)
	observability.SetRouteClass(ctx, class.String())
	span.SetAttributes(attribute.String("edgegate.route_class", class.String()))

	out := r.Clone(ctx)
	out.Header.Del(HeaderTenantID)
	out.Header.Del(HeaderTenantDomain)

	if !class.RequiresTenant() {
		p.forward(w, out)
		return
	}

	start = time.Now()
	ctx = tenant.WithScope(ctx)
	t, err := p.resolveTenant(ctx, r.Host)
	if err != nil {
		p.metrics.decide(stageTenant, tenantOutcome(err), start)
		p.tenantFailure(w, r, class, err, requestID)
		return
	}
	p.metrics.decide(stageTenant, "ok", start)
	ctx = tenant.NewContext(ctx, t)
	span.SetAttributes(attribute.String("edgegate.tenant.id", t.ID))

	start = time.Now()
	verdict, ac := snap.Gate.Check(r, class)
	p.metrics.decide(stageAuth, verdict.Outcome.String(), start)
	if verdict.Outcome != auth.OutcomeAllow {
		p.logger.Debug("auth gate rejected request",
			observability.String("path", r.URL.Path),
			observability.String("outcome", verdict.Outcome.String()),
			observability.String("request_id", requestID),
			observability.Error(verdict.Err),
		)
		snap.Gate.Write(w, r, verdict)
		return
	}
	ctx = auth.NewContext(ctx, ac)

	out = out.WithContext(ctx)
	out.Header.Set(HeaderTenantID, t.ID)
	out.Header.Set(HeaderTenantDomain, t.Domain)
	p.forward(w, out)
}

func (p *Pipeline) resolveTenant(ctx context.Context, host string) (*tenant.Tenant, error) {
	if p.resolver == nil {
		return nil, tenant.ErrTenantUnavailable
	}
	return p.resolver.Resolve(ctx, host)
}

func (p *Pipeline) forward(w http.ResponseWriter, r *http.Request) {
	p.metrics.decisionsTotal.WithLabelValues(stageForward, "forwarded").Inc()
	p.next.ServeHTTP(w, r)
}

// reject answers a compliance block and hands the violation to the audit
// sink. Recording never blocks the response.
func (p *Pipeline) reject(
	w http.ResponseWriter,
	r *http.Request,
	snap *Snapshot,
	d compliance.Decision,
	requestID string,
) {
	observability.SetRouteClass(r.Context(), "blocked")
	clientIP := p.clientIP(r)

	p.logger.Warn("compliance violation blocked",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.String("reason", string(d.Reason)),
		observability.String("rule", d.Rule),
		observability.String("client_ip", clientIP),
		observability.String("request_id", requestID),
		observability.Error(d.Err()),
	)

	p.audit.Record(r.Context(), &audit.Violation{
		Path:       r.URL.Path,
		Method:     r.Method,
		RemoteIP:   clientIP,
		UserAgent:  r.UserAgent(),
		Reason:     string(d.Reason),
		Rule:       d.Rule,
		RequestID:  requestID,
		TenantHost: util.NormalizeHost(r.Host),
	})

	util.WriteJSON(w, d.Status, snap.Filter.Rejection(d, r, requestID))
}

// tenantFailure maps a resolution error to a response. Unknown and
// suspended tenants get 403 on admin routes and 401 elsewhere; an
// unavailable directory gets 503.
func (p *Pipeline) tenantFailure(
	w http.ResponseWriter,
	r *http.Request,
	class routing.Classification,
	err error,
	requestID string,
) {
	fields := []observability.Field{
		observability.String("host", r.Host),
		observability.String("path", r.URL.Path),
		observability.String("request_id", requestID),
		observability.Error(err),
	}

	if errors.Is(err, tenant.ErrTenantUnavailable) {
		p.logger.Error("tenant directory unavailable", fields...)
		w.Header().Set("Retry-After", "1")
		util.WriteJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:     codeTenantUnavailable,
			RequestID: requestID,
		})
		return
	}

	code := codeTenantNotFound
	if errors.Is(err, tenant.ErrTenantSuspended) {
		code = codeTenantSuspended
	}
	status := http.StatusUnauthorized
	if class == routing.Admin {
		status = http.StatusForbidden
	}

	p.logger.Warn("tenant resolution failed", fields...)
	util.WriteJSON(w, status, errorBody{Error: code, RequestID: requestID})
}

func tenantOutcome(err error) string {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		return "not_found"
	case errors.Is(err, tenant.ErrTenantSuspended):
		return "suspended"
	default:
		return "unavailable"
	}
}

func remoteIP(r *http.Request) string {
	return util.NormalizeHost(r.RemoteAddr)
}
