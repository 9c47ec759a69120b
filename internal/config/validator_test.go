package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "ops listener clash",
			mutate:  func(c *Config) { c.Ops.Address = c.Server.Address },
			wantErr: "ops.address",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/33"} },
			wantErr: "server.trustedProxies[0]",
		},
		{
			name:    "empty deny-list term",
			mutate:  func(c *Config) { c.Compliance.RoutePrefixes = []string{"payment", " "} },
			wantErr: "compliance.routePrefixes[1]",
		},
		{
			name: "duplicate rule name",
			mutate: func(c *Config) {
				c.Compliance.Rules = []ExpressionRule{
					{Name: "a", Expression: "true"},
					{Name: "a", Expression: "false"},
				}
			},
			wantErr: "duplicate rule name",
		},
		{
			name:    "bad frame options",
			mutate:  func(c *Config) { c.Headers.Security.FrameOptions = "ALLOWALL" },
			wantErr: "headers.security.frameOptions",
		},
		{
			name:    "unknown default policy",
			mutate:  func(c *Config) { c.Routing.DefaultPolicy = "maybe" },
			wantErr: "routing.defaultPolicy",
		},
		{
			name: "route without slash",
			mutate: func(c *Config) {
				c.Routing.Routes = []RouteRule{{Pattern: "dashboard", Match: MatchPrefix, Classification: ClassProtected}}
			},
			wantErr: "routing.routes[0].pattern",
		},
		{
			name: "unknown capability",
			mutate: func(c *Config) {
				c.Routing.Routes = []RouteRule{{Pattern: "/x", Match: MatchExact, Classification: ClassPublic, Capability: "write"}}
			},
			wantErr: "unknown capability",
		},
		{
			name: "unclassified is not assignable",
			mutate: func(c *Config) {
				c.Routing.Routes = []RouteRule{{Pattern: "/x", Match: MatchExact, Classification: ClassUnclassified}}
			},
			wantErr: "unknown classification",
		},
		{
			name: "duplicate static tenant domain",
			mutate: func(c *Config) {
				c.Tenant.Directory.Tenants = []TenantEntry{
					{ID: "a", Domain: "bank.example.com"},
					{ID: "b", Domain: "BANK.example.com"},
				}
			},
			wantErr: "duplicate domain",
		},
		{
			name: "bad tenant status",
			mutate: func(c *Config) {
				c.Tenant.Directory.Tenants = []TenantEntry{{ID: "a", Domain: "a.example.com", Status: "frozen"}}
			},
			wantErr: ".status",
		},
		{
			name:    "http directory needs base url",
			mutate:  func(c *Config) { c.Tenant.Directory.Type = DirectoryHTTP },
			wantErr: "tenant.directory.baseURL",
		},
		{
			name:    "postgres directory needs dsn",
			mutate:  func(c *Config) { c.Tenant.Directory.Type = DirectoryPostgres },
			wantErr: "tenant.directory.postgres.dsn",
		},
		{
			name:    "redis needs url",
			mutate:  func(c *Config) { c.Cache.Type = CacheTypeRedis },
			wantErr: "cache.redis.url",
		},
		{
			name: "vault path needs vault",
			mutate: func(c *Config) {
				c.Cache.Type = CacheTypeRedis
				c.Cache.Redis = &RedisConfig{URL: "redis://localhost:6379", PasswordVaultPath: "secret/redis"}
			},
			wantErr: "requires vault.enabled",
		},
		{
			name:    "audit redis store needs url",
			mutate:  func(c *Config) { c.Audit.Store = &CacheConfig{Type: CacheTypeRedis} },
			wantErr: "audit.store.redis.url",
		},
		{
			name:    "relative upstream url",
			mutate:  func(c *Config) { c.Upstream.URL = "app:3000" },
			wantErr: "upstream.url",
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			wantErr: "tracing.samplingRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())

	errs := ValidationErrors{
		{Path: "a", Message: "first"},
		{Message: "second"},
	}
	assert.Contains(t, errs.Error(), "2 validation errors")
	assert.Contains(t, errs.Error(), "1. a: first")
	assert.Contains(t, errs.Error(), "2. second")
}
