package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, PolicyDeny, cfg.Routing.DefaultPolicy)
	assert.Equal(t, []string{"payment", "transfer", "withdraw", "wallet"}, cfg.Compliance.RoutePrefixes)
	assert.Equal(t, []string{"transaction"}, cfg.Compliance.ReadOnlyKeywords)
	assert.Equal(t, 2*time.Second, cfg.Tenant.ResolveTimeout.Duration())
	assert.Equal(t, 30*time.Second, cfg.Tenant.CacheTTL.Duration())
	assert.Equal(t, 31536000*time.Second, cfg.Audit.TTL.Duration())
	assert.Equal(t, "compliance_block_", cfg.Audit.KeyPrefix)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, []string{"session_token", "auth_token"}, cfg.Auth.CookieNames)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "edgegate.yaml")

	content := `
server:
  address: ":8443"
compliance:
  operationKeywords: [charge]
  rules:
    - name: no-crypto
      expression: 'request.path.contains("crypto")'
routing:
  defaultPolicy: allow
tenant:
  directory:
    type: static
    tenants:
      - id: t1
        name: Acme Bank
        domain: acme.example.com
        status: active
audit:
  ttl: 31536000
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8443", cfg.Server.Address)
	assert.Equal(t, []string{"charge"}, cfg.Compliance.OperationKeywords)
	// Unset lists keep their defaults.
	assert.Equal(t, []string{"payment", "transfer", "withdraw", "wallet"}, cfg.Compliance.RoutePrefixes)
	require.Len(t, cfg.Compliance.Rules, 1)
	assert.Equal(t, "no-crypto", cfg.Compliance.Rules[0].Name)
	assert.Equal(t, PolicyAllow, cfg.Routing.DefaultPolicy)
	require.Len(t, cfg.Tenant.Directory.Tenants, 1)
	assert.Equal(t, "acme.example.com", cfg.Tenant.Directory.Tenants[0].Domain)
	assert.Equal(t, 365*24*time.Hour, cfg.Audit.TTL.Duration())
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/path/edgegate.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfigFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("server:\n  adress: \":1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadConfigFromReader_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestLoadConfigFromReader_AuditStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		yaml      string
		wantType  string
		wantNoEvt bool
	}{
		{
			name:      "follows memory cache without eviction",
			yaml:      "cache:\n  type: memory\n  maxEntries: 50\n",
			wantType:  CacheTypeMemory,
			wantNoEvt: true,
		},
		{
			name:     "follows redis cache",
			yaml:     "cache:\n  type: redis\n  redis:\n    url: redis://cache:6379\n",
			wantType: CacheTypeRedis,
		},
		{
			name:     "explicit store",
			yaml:     "audit:\n  store:\n    type: redis\n    redis:\n      url: redis://audit:6379\n",
			wantType: CacheTypeRedis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			require.NotNil(t, cfg.Audit.Store)
			assert.Equal(t, tt.wantType, cfg.Audit.Store.Type)
			assert.Equal(t, tt.wantNoEvt, cfg.Audit.Store.NoEviction)
			assert.False(t, cfg.Cache.NoEviction)
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("EDGEGATE_TEST_UPSTREAM", "http://app:3000")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "${EDGEGATE_TEST_UPSTREAM}", want: "http://app:3000"},
		{name: "default used", input: "${EDGEGATE_TEST_MISSING:-fallback}", want: "fallback"},
		{name: "missing without default", input: "x${EDGEGATE_TEST_MISSING}y", want: "xy"},
		{name: "escaped dollar", input: "$${NOT_A_VAR}", want: "${NOT_A_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "console")

	cfg, err := LoadConfigFromReader(strings.NewReader("logging:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestDuration_Parse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "30s", want: 30 * time.Second},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "120", want: 2 * time.Minute},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Duration())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"5m"`)))
	assert.Equal(t, 5*time.Minute, d.Duration())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"5m0s"`, string(out))

	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.Zero(t, d)
}
