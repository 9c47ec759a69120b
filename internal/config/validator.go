package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(cfg)
	v.validateCompliance(&cfg.Compliance)
	v.validateRouting(&cfg.Routing)
	v.validateTenant(&cfg.Tenant)
	v.validateAuth(&cfg.Auth)
	v.validateAudit(&cfg.Audit)
	v.validateCache(cfg)
	v.validateUpstream(&cfg.Upstream)
	v.validateSecurityHeaders(&cfg.Headers.Security)

	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "must be between 0 and 1")
	}

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(cfg *Config) {
	if cfg.Server.Address == cfg.Ops.Address {
		v.addError("ops.address", "must differ from server.address")
	}
	for i, cidr := range cfg.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				v.addError(fmt.Sprintf("server.trustedProxies[%d]", i), "invalid CIDR or IP: "+cidr)
			}
		}
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		v.addError("logging.format", "must be json or console")
	}
}

func (v *Validator) validateCompliance(c *ComplianceConfig) {
	checkTerms := func(path string, terms []string) {
		for i, t := range terms {
			if strings.TrimSpace(t) == "" {
				v.addError(fmt.Sprintf("%s[%d]", path, i), "must not be empty")
			}
		}
	}
	checkTerms("compliance.routePrefixes", c.RoutePrefixes)
	checkTerms("compliance.operationKeywords", c.OperationKeywords)
	checkTerms("compliance.readOnlyKeywords", c.ReadOnlyKeywords)

	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		path := fmt.Sprintf("compliance.rules[%d]", i)
		if r.Name == "" {
			v.addError(path+".name", "name is required")
		} else if seen[r.Name] {
			v.addError(path+".name", "duplicate rule name "+r.Name)
		}
		seen[r.Name] = true
		if strings.TrimSpace(r.Expression) == "" {
			v.addError(path+".expression", "expression is required")
		}
	}
}

func (v *Validator) validateRouting(r *RoutingConfig) {
	switch r.DefaultPolicy {
	case PolicyDeny, PolicyAllow:
	default:
		v.addError("routing.defaultPolicy", "must be deny or allow")
	}

	for i, rule := range r.Routes {
		path := fmt.Sprintf("routing.routes[%d]", i)
		if !strings.HasPrefix(rule.Pattern, "/") {
			v.addError(path+".pattern", "must start with /")
		}
		switch rule.Match {
		case MatchExact, MatchPrefix:
		default:
			v.addError(path+".match", "must be exact or prefix")
		}
		switch rule.Classification {
		case ClassPublic, ClassMFASetup, ClassProtected, ClassAdmin:
		default:
			v.addError(path+".classification", "unknown classification "+rule.Classification)
		}
		switch rule.Capability {
		case "", CapabilityReadable, CapabilityMutating, CapabilityFundOperation:
		default:
			v.addError(path+".capability", "unknown capability "+rule.Capability)
		}
	}
}

func (v *Validator) validateTenant(t *TenantConfig) {
	if t.ResolveTimeout.Duration() <= 0 {
		v.addError("tenant.resolveTimeout", "must be positive")
	}
	if t.CacheTTL.Duration() < 0 {
		v.addError("tenant.cacheTTL", "must not be negative")
	}

	switch t.Directory.Type {
	case DirectoryStatic:
		domains := make(map[string]bool, len(t.Directory.Tenants))
		for i, e := range t.Directory.Tenants {
			path := fmt.Sprintf("tenant.directory.tenants[%d]", i)
			if e.ID == "" {
				v.addError(path+".id", "id is required")
			}
			if e.Domain == "" {
				v.addError(path+".domain", "domain is required")
			} else if domains[strings.ToLower(e.Domain)] {
				v.addError(path+".domain", "duplicate domain "+e.Domain)
			}
			domains[strings.ToLower(e.Domain)] = true
			v.validateTenantStatus(path+".status", e.Status)
		}
	case DirectoryHTTP:
		if _, err := url.ParseRequestURI(t.Directory.BaseURL); err != nil {
			v.addError("tenant.directory.baseURL", "valid URL is required for the http directory")
		}
	case DirectoryPostgres:
		if t.Directory.Postgres.DSN == "" {
			v.addError("tenant.directory.postgres.dsn", "dsn is required for the postgres directory")
		}
	default:
		v.addError("tenant.directory.type", "must be static, http or postgres")
	}
}

func (v *Validator) validateTenantStatus(path, status string) {
	switch status {
	case "", "active", "suspended", "inactive":
	default:
		v.addError(path, "must be active, suspended or inactive")
	}
}

func (v *Validator) validateAuth(a *AuthConfig) {
	if !strings.HasPrefix(a.SignInPath, "/") {
		v.addError("auth.signInPath", "must start with /")
	}
	if !strings.HasPrefix(a.MFASetupPath, "/") {
		v.addError("auth.mfaSetupPath", "must start with /")
	}
	if !strings.HasPrefix(a.APIPrefix, "/") {
		v.addError("auth.apiPrefix", "must start with /")
	}
	if len(a.CookieNames) == 0 {
		v.addError("auth.cookieNames", "at least one cookie name is required")
	}
}

func (v *Validator) validateAudit(a *AuditConfig) {
	if a.TTL.Duration() <= 0 {
		v.addError("audit.ttl", "must be positive")
	}
	if a.KeyPrefix == "" {
		v.addError("audit.keyPrefix", "must not be empty")
	}
}

func (v *Validator) validateCache(cfg *Config) {
	v.validateStore("cache", &cfg.Cache, cfg.Vault.Enabled)
	if cfg.Audit.Enabled && cfg.Audit.Store != nil {
		v.validateStore("audit.store", cfg.Audit.Store, cfg.Vault.Enabled)
	}

	if cfg.Vault.Enabled && cfg.Vault.Address == "" {
		v.addError("vault.address", "address is required when vault is enabled")
	}
}

func (v *Validator) validateStore(field string, c *CacheConfig, vaultEnabled bool) {
	switch c.Type {
	case CacheTypeMemory:
	case CacheTypeRedis:
		if c.Redis == nil || c.Redis.URL == "" {
			v.addError(field+".redis.url", "url is required for the redis cache")
		}
		if c.Redis != nil && c.Redis.PasswordVaultPath != "" && !vaultEnabled {
			v.addError(field+".redis.passwordVaultPath", "requires vault.enabled")
		}
	default:
		v.addError(field+".type", "must be memory or redis")
	}
}

func (v *Validator) validateUpstream(u *UpstreamConfig) {
	if u.URL != "" {
		parsed, err := url.Parse(u.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			v.addError("upstream.url", "must be an absolute URL")
		}
	}
	for i, r := range u.Routes {
		if !strings.HasPrefix(r, "/") {
			v.addError(fmt.Sprintf("upstream.routes[%d]", i), "must start with /")
		}
	}
}

func (v *Validator) validateSecurityHeaders(s *SecurityHeadersConfig) {
	switch strings.ToUpper(s.FrameOptions) {
	case "", "DENY", "SAMEORIGIN":
	default:
		v.addError("headers.security.frameOptions", "must be DENY or SAMEORIGIN")
	}
	if s.HSTSMaxAge < 0 {
		v.addError("headers.security.hstsMaxAge", "must not be negative")
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
