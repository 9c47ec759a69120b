package config

import "time"

// Route classification names used in configuration files.
const (
	ClassPublic       = "public"
	ClassMFASetup     = "mfa-setup"
	ClassProtected    = "protected"
	ClassAdmin        = "admin"
	ClassUnclassified = "unclassified"
)

// Route match kinds.
const (
	MatchExact  = "exact"
	MatchPrefix = "prefix"
)

// Capability tags attached to route rules.
const (
	CapabilityReadable      = "readable"
	CapabilityMutating      = "mutating"
	CapabilityFundOperation = "fund_operation"
)

// Unclassified route policies.
const (
	PolicyDeny  = "deny"
	PolicyAllow = "allow"
)

// Tenant directory types.
const (
	DirectoryStatic   = "static"
	DirectoryHTTP     = "http"
	DirectoryPostgres = "postgres"
)

// Cache backend types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Config is the root configuration of the gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Ops        OpsConfig        `yaml:"ops" json:"ops"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Tracing    TracingConfig    `yaml:"tracing" json:"tracing"`
	Compliance ComplianceConfig `yaml:"compliance" json:"compliance"`
	Routing    RoutingConfig    `yaml:"routing" json:"routing"`
	Tenant     TenantConfig     `yaml:"tenant" json:"tenant"`
	Auth       AuthConfig       `yaml:"auth" json:"auth"`
	Audit      AuditConfig      `yaml:"audit" json:"audit"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Vault      VaultConfig      `yaml:"vault" json:"vault"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit" json:"rateLimit"`
	Upstream   UpstreamConfig   `yaml:"upstream" json:"upstream"`
	Headers    HeadersConfig    `yaml:"headers" json:"headers"`
}

// ServerConfig configures the public listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For entries are trusted
	// when determining the client IP.
	TrustedProxies []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty"`
}

// OpsConfig configures the operations listener (health, metrics, audit).
type OpsConfig struct {
	Address string `yaml:"address" json:"address"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// ComplianceConfig configures the compliance filter.
type ComplianceConfig struct {
	// Policy is reported in every rejection body.
	Policy string `yaml:"policy" json:"policy"`

	// Message is the human readable explanation in rejection bodies.
	Message string `yaml:"message" json:"message"`

	RoutePrefixes     []string `yaml:"routePrefixes" json:"routePrefixes"`
	OperationKeywords []string `yaml:"operationKeywords" json:"operationKeywords"`

	// ReadOnlyKeywords mark path fragments that only accept safe methods.
	ReadOnlyKeywords []string `yaml:"readOnlyKeywords" json:"readOnlyKeywords"`

	Rules []ExpressionRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// ExpressionRule is a CEL expression evaluated against each request.
// A rule that evaluates to true rejects the request.
type ExpressionRule struct {
	Name       string `yaml:"name" json:"name"`
	Expression string `yaml:"expression" json:"expression"`
	Reason     string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// RoutingConfig configures the route classifier.
type RoutingConfig struct {
	// DefaultPolicy decides what happens to unclassified paths: deny or allow.
	DefaultPolicy string `yaml:"defaultPolicy" json:"defaultPolicy"`

	// Routes replaces the built-in route table when non-empty.
	Routes []RouteRule `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// RouteRule maps a path pattern to a classification and capability.
type RouteRule struct {
	Pattern        string `yaml:"pattern" json:"pattern"`
	Match          string `yaml:"match" json:"match"`
	Classification string `yaml:"classification" json:"classification"`
	Capability     string `yaml:"capability,omitempty" json:"capability,omitempty"`
}

// TenantConfig configures tenant resolution.
type TenantConfig struct {
	DevHosts       []string        `yaml:"devHosts" json:"devHosts"`
	DemoTenant     TenantEntry     `yaml:"demoTenant" json:"demoTenant"`
	ResolveTimeout Duration        `yaml:"resolveTimeout" json:"resolveTimeout"`
	CacheTTL       Duration        `yaml:"cacheTTL" json:"cacheTTL"`
	Directory      DirectoryConfig `yaml:"directory" json:"directory"`
}

// DirectoryConfig selects and configures the tenant directory.
type DirectoryConfig struct {
	Type string `yaml:"type" json:"type"`

	// Tenants are served by the static directory.
	Tenants []TenantEntry `yaml:"tenants,omitempty" json:"tenants,omitempty"`

	// BaseURL is the tenant service address for the http directory.
	BaseURL  string         `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	Breaker  BreakerConfig  `yaml:"breaker" json:"breaker"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// BreakerConfig configures the circuit breaker around the tenant service.
type BreakerConfig struct {
	MaxRequests      uint32   `yaml:"maxRequests" json:"maxRequests"`
	Interval         Duration `yaml:"interval" json:"interval"`
	Timeout          Duration `yaml:"timeout" json:"timeout"`
	FailureThreshold uint32   `yaml:"failureThreshold" json:"failureThreshold"`
}

// PostgresConfig configures the postgres tenant directory.
type PostgresConfig struct {
	DSN      string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	MaxConns int32  `yaml:"maxConns,omitempty" json:"maxConns,omitempty"`
}

// TenantEntry describes a tenant in configuration.
type TenantEntry struct {
	ID               string            `yaml:"id" json:"id"`
	Name             string            `yaml:"name" json:"name"`
	Domain           string            `yaml:"domain" json:"domain"`
	Status           string            `yaml:"status" json:"status"`
	SubscriptionPlan string            `yaml:"subscriptionPlan" json:"subscriptionPlan"`
	Branding         map[string]string `yaml:"branding,omitempty" json:"branding,omitempty"`
	Currency         string            `yaml:"currency,omitempty" json:"currency,omitempty"`
	Timezone         string            `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// AuthConfig configures the auth gate.
type AuthConfig struct {
	CookieNames []string `yaml:"cookieNames" json:"cookieNames"`
	SignInPath  string   `yaml:"signInPath" json:"signInPath"`

	// IncludeNext appends ?next=<path> to sign-in redirects.
	IncludeNext  bool     `yaml:"includeNext" json:"includeNext"`
	MFASetupPath string   `yaml:"mfaSetupPath" json:"mfaSetupPath"`
	APIPrefix    string   `yaml:"apiPrefix" json:"apiPrefix"`
	AdminRoles   []string `yaml:"adminRoles" json:"adminRoles"`
}

// AuditConfig configures the compliance audit sink.
type AuditConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	KeyPrefix    string   `yaml:"keyPrefix" json:"keyPrefix"`
	TTL          Duration `yaml:"ttl" json:"ttl"`
	BufferSize   int      `yaml:"bufferSize" json:"bufferSize"`
	WriteTimeout Duration `yaml:"writeTimeout" json:"writeTimeout"`
	MaxRetries   int      `yaml:"maxRetries" json:"maxRetries"`
	// Store is the audit record store. When unset it copies the cache
	// section with eviction disabled.
	Store *CacheConfig `yaml:"store,omitempty" json:"store,omitempty"`
}

// CacheConfig configures a key-value store. The top-level cache section
// backs the tenant cache; audit.store backs the audit sink.
type CacheConfig struct {
	Type       string `yaml:"type" json:"type"`
	MaxEntries int    `yaml:"maxEntries" json:"maxEntries"`
	// NoEviction keeps live memory entries until their TTL expires,
	// ignoring MaxEntries.
	NoEviction bool         `yaml:"noEviction,omitempty" json:"noEviction,omitempty"`
	Redis      *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	URL          string   `yaml:"url" json:"url"`
	KeyPrefix    string   `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	PoolSize     int      `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`
	DialTimeout  Duration `yaml:"dialTimeout,omitempty" json:"dialTimeout,omitempty"`
	ReadTimeout  Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// PasswordVaultPath is a "mount/path" KV v2 location holding a
	// "password" key. Requires vault.enabled.
	PasswordVaultPath string `yaml:"passwordVaultPath,omitempty" json:"passwordVaultPath,omitempty"`
}

// VaultConfig configures the Vault client used to resolve secrets.
type VaultConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Address   string   `yaml:"address" json:"address"`
	Token     string   `yaml:"token,omitempty" json:"token,omitempty"`
	Namespace string   `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int     `yaml:"burst" json:"burst"`
	MaxClients        int     `yaml:"maxClients" json:"maxClients"`
}

// UpstreamConfig configures the application behind the gateway.
type UpstreamConfig struct {
	// URL of the application. Empty serves the built-in echo handler.
	URL string `yaml:"url" json:"url"`

	// Routes lists the paths the application serves. Each must be
	// classified by the route table or startup fails.
	Routes []string `yaml:"routes,omitempty" json:"routes,omitempty"`

	FlushInterval Duration `yaml:"flushInterval,omitempty" json:"flushInterval,omitempty"`
}

// HeadersConfig configures response headers added to every response.
type HeadersConfig struct {
	Posture  map[string]string     `yaml:"posture,omitempty" json:"posture,omitempty"`
	Security SecurityHeadersConfig `yaml:"security" json:"security"`
}

// SecurityHeadersConfig configures the browser hardening headers.
type SecurityHeadersConfig struct {
	Disabled       bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	FrameOptions   string `yaml:"frameOptions" json:"frameOptions"`
	ReferrerPolicy string `yaml:"referrerPolicy" json:"referrerPolicy"`

	// HSTSMaxAge is sent as Strict-Transport-Security on HTTPS requests.
	// Zero disables the header.
	HSTSMaxAge            Duration `yaml:"hstsMaxAge" json:"hstsMaxAge"`
	HSTSIncludeSubDomains bool     `yaml:"hstsIncludeSubDomains" json:"hstsIncludeSubDomains"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{
		Audit: AuditConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyComplianceDefaults(&cfg.Compliance)
	applyTenantDefaults(&cfg.Tenant)
	applyAuthDefaults(&cfg.Auth)
	applyAuditDefaults(&cfg.Audit)

	if cfg.Routing.DefaultPolicy == "" {
		cfg.Routing.DefaultPolicy = PolicyDeny
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = CacheTypeMemory
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 10000
	}
	applyAuditStoreDefaults(&cfg.Audit, &cfg.Cache)
	if cfg.Vault.Timeout == 0 {
		cfg.Vault.Timeout = Duration(10 * time.Second)
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 50
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 100
	}
	if cfg.RateLimit.MaxClients <= 0 {
		cfg.RateLimit.MaxClients = 10000
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "edgegate"
	}
	if cfg.Headers.Security.FrameOptions == "" {
		cfg.Headers.Security.FrameOptions = "DENY"
	}
	if cfg.Headers.Security.ReferrerPolicy == "" {
		cfg.Headers.Security.ReferrerPolicy = "strict-origin-when-cross-origin"
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(15 * time.Second)
	}
	if cfg.Ops.Address == "" {
		cfg.Ops.Address = ":9090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func applyComplianceDefaults(c *ComplianceConfig) {
	if c.Policy == "" {
		c.Policy = "software-only-platform"
	}
	if c.Message == "" {
		c.Message = "This platform is software-only and does not perform payment or fund operations."
	}
	if c.RoutePrefixes == nil {
		c.RoutePrefixes = []string{"payment", "transfer", "withdraw", "wallet"}
	}
	if c.OperationKeywords == nil {
		c.OperationKeywords = []string{"charge", "payout", "fund", "deposit", "remittance"}
	}
	if c.ReadOnlyKeywords == nil {
		c.ReadOnlyKeywords = []string{"transaction"}
	}
}

func applyTenantDefaults(t *TenantConfig) {
	if t.DevHosts == nil {
		t.DevHosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	if t.DemoTenant.ID == "" {
		t.DemoTenant = TenantEntry{
			ID:               "demo",
			Name:             "Demo Bank",
			Domain:           "localhost",
			Status:           "active",
			SubscriptionPlan: "enterprise",
			Currency:         "USD",
			Timezone:         "UTC",
		}
	}
	if t.ResolveTimeout == 0 {
		t.ResolveTimeout = Duration(2 * time.Second)
	}
	if t.CacheTTL == 0 {
		t.CacheTTL = Duration(30 * time.Second)
	}
	if t.Directory.Type == "" {
		t.Directory.Type = DirectoryStatic
	}
	b := &t.Directory.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.Interval == 0 {
		b.Interval = Duration(time.Minute)
	}
	if b.Timeout == 0 {
		b.Timeout = Duration(30 * time.Second)
	}
	if b.FailureThreshold == 0 {
		b.FailureThreshold = 5
	}
	if t.Directory.Postgres.MaxConns <= 0 {
		t.Directory.Postgres.MaxConns = 10
	}
}

func applyAuthDefaults(a *AuthConfig) {
	if a.CookieNames == nil {
		a.CookieNames = []string{"session_token", "auth_token"}
	}
	if a.SignInPath == "" {
		a.SignInPath = "/"
	}
	if a.MFASetupPath == "" {
		a.MFASetupPath = "/mfa-setup"
	}
	if a.APIPrefix == "" {
		a.APIPrefix = "/api/"
	}
	if a.AdminRoles == nil {
		a.AdminRoles = []string{"admin", "platform_admin"}
	}
}

func applyAuditDefaults(a *AuditConfig) {
	if a.KeyPrefix == "" {
		a.KeyPrefix = "compliance_block_"
	}
	if a.TTL == 0 {
		a.TTL = Duration(31536000 * time.Second)
	}
	if a.BufferSize <= 0 {
		a.BufferSize = 1024
	}
	if a.WriteTimeout == 0 {
		a.WriteTimeout = Duration(2 * time.Second)
	}
	if a.MaxRetries < 0 {
		a.MaxRetries = 0
	}
}

func applyAuditStoreDefaults(a *AuditConfig, shared *CacheConfig) {
	if a.Store == nil {
		store := *shared
		store.NoEviction = true
		a.Store = &store
		return
	}
	if a.Store.Type == "" {
		a.Store.Type = CacheTypeMemory
	}
	if a.Store.Type == CacheTypeMemory {
		a.Store.NoEviction = true
	}
}
