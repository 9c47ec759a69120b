package compliance

import (
	"net/http"
	"strings"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/routing"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// CapabilityLookup returns the capability tag of the route covering a path
// and the pattern of that route.
type CapabilityLookup interface {
	CapabilityOf(path string) (routing.Capability, string, bool)
}

// Request is the part of an HTTP request the filter looks at.
type Request struct {
	// Path is the escaped request path.
	Path    string
	Method  string
	Host    string
	Headers http.Header
}

// Filter rejects prohibited operations.
type Filter struct {
	policy            string
	message           string
	routePrefixes     []string
	operationKeywords []string
	readOnlyKeywords  []string
	rules             []expressionRule
	capabilities      CapabilityLookup
	logger            observability.Logger
	metrics           *Metrics
}

// Option configures a Filter.
type Option func(*Filter)

// WithCapabilities enables the structural capability check.
func WithCapabilities(lookup CapabilityLookup) Option {
	return func(f *Filter) {
		f.capabilities = lookup
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

// New builds a filter. Expression rules are compiled here; a rule that does
// not compile is an error.
func New(cfg *config.ComplianceConfig, opts ...Option) (*Filter, error) {
	if cfg == nil {
		cfg = &config.DefaultConfig().Compliance
	}

	f := &Filter{
		policy:            cfg.Policy,
		message:           cfg.Message,
		routePrefixes:     foldTerms(cfg.RoutePrefixes),
		operationKeywords: foldTerms(cfg.OperationKeywords),
		readOnlyKeywords:  foldTerms(cfg.ReadOnlyKeywords),
		logger:            observability.NopLogger(),
		metrics:           GetMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}

	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	f.rules = rules

	return f, nil
}

func foldTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = util.FoldPath(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Policy returns the policy name reported in rejections.
func (f *Filter) Policy() string {
	return f.policy
}

// Check evaluates an HTTP request.
func (f *Filter) Check(r *http.Request) Decision {
	return f.Evaluate(&Request{
		Path:    r.URL.EscapedPath(),
		Method:  r.Method,
		Host:    r.Host,
		Headers: r.Header,
	})
}

// Evaluate runs every rule against req and returns the first rejection.
func (f *Filter) Evaluate(req *Request) Decision {
	d := f.evaluate(req)
	f.metrics.record(d)
	return d
}

func (f *Filter) evaluate(req *Request) Decision {
	path := util.FoldPath(req.Path)
	method := strings.ToUpper(req.Method)

	if term, ok := containsAny(path, f.routePrefixes); ok {
		return reject(ReasonProhibitedRoute, term)
	}
	if term, ok := containsAny(path, f.operationKeywords); ok {
		return reject(ReasonProhibitedOperation, term)
	}
	if !isSafeMethod(method) {
		if term, ok := containsAny(path, f.readOnlyKeywords); ok {
			return reject(ReasonReadOnlyResource, term)
		}
	}

	if f.capabilities != nil {
		if capability, pattern, ok := f.capabilities.CapabilityOf(req.Path); ok {
			switch {
			case capability == routing.CapabilityFundOperation:
				return reject(ReasonProhibitedOperation, pattern)
			case capability == routing.CapabilityReadable && !isSafeMethod(method):
				return reject(ReasonReadOnlyResource, pattern)
			}
		}
	}

	if len(f.rules) > 0 {
		vars := activation(&Request{Path: req.Path, Method: method, Host: req.Host, Headers: req.Headers}, path)
		for _, rule := range f.rules {
			out, _, err := rule.program.Eval(vars)
			if err != nil {
				f.metrics.ruleErrorsTotal.WithLabelValues(rule.name).Inc()
				f.logger.Debug("compliance rule evaluation error",
					observability.String("rule", rule.name),
					observability.Error(err),
				)
				continue
			}
			if matched, ok := out.Value().(bool); ok && matched {
				return reject(rule.reason, rule.name)
			}
		}
	}

	return Pass()
}

// Rejection builds the response body for a blocked decision.
func (f *Filter) Rejection(d Decision, r *http.Request, requestID string) Rejection {
	return Rejection{
		Error:   "compliance_violation",
		Message: f.message,
		Compliance: RejectionNotes{
			Reason: d.Reason,
			Rule:   d.Rule,
			Policy: f.policy,
		},
		Path:      r.URL.Path,
		Method:    r.Method,
		RequestID: requestID,
	}
}

func containsAny(s string, terms []string) (string, bool) {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}

// isSafeMethod reports whether method cannot change state. Unknown methods
// are treated as mutating.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
