package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

func newDefaultTable(t *testing.T) *Table {
	t.Helper()

	table, err := FromConfig(&config.RoutingConfig{DefaultPolicy: config.PolicyDeny})
	require.NoError(t, err)
	return table
}

func TestTable_ClassifyDefaults(t *testing.T) {
	t.Parallel()

	table := newDefaultTable(t)

	tests := []struct {
		path string
		want Classification
	}{
		{path: "/", want: Public},
		{path: "/register", want: Public},
		{path: "/forgot-password", want: Public},
		{path: "/reset-password", want: Public},
		{path: "/terms", want: Public},
		{path: "/privacy", want: Public},
		{path: "/legal", want: Public},
		{path: "/cookies", want: Public},
		{path: "/_next/static/chunks/main.js", want: Public},
		{path: "/static/logo.svg", want: Public},
		{path: "/favicon.ico", want: Public},
		{path: "/mfa-setup", want: MFASetup},
		{path: "/mfa-setup/verify", want: MFASetup},
		{path: "/dashboard", want: Protected},
		{path: "/Dashboard/", want: Protected},
		{path: "/dashboard/overview", want: Protected},
		{path: "/accounts/42", want: Protected},
		{path: "/transactions", want: Protected},
		{path: "/help", want: Protected},
		{path: "/api/accounts", want: Protected},
		{path: "/api", want: Protected},
		{path: "/admin", want: Admin},
		{path: "/admin/tenants", want: Admin},
		{path: "/api/admin/users", want: Admin},
		{path: "/helpdesk", want: Unclassified},
		{path: "/register/extra", want: Unclassified},
		{path: "/unknown", want: Unclassified},
		{path: "/administrator", want: Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, table.Classify(tt.path))
		})
	}
}

func TestTable_LongestMatchWins(t *testing.T) {
	t.Parallel()

	table := newDefaultTable(t)

	res := table.Lookup("/api/admin/users")
	require.True(t, res.Matched())
	assert.Equal(t, "/api/admin", res.Rule.Pattern)
	assert.Equal(t, Admin, res.Classification)

	res = table.Lookup("/api/transactions/7")
	require.True(t, res.Matched())
	assert.Equal(t, CapabilityReadable, res.Capability)
}

func TestTable_ExactBeatsPrefixOfEqualLength(t *testing.T) {
	t.Parallel()

	table, err := NewTable([]Rule{
		{Pattern: "/reports", Match: config.MatchPrefix, Classification: Protected},
		{Pattern: "/reports", Match: config.MatchExact, Classification: Public},
	}, PolicyDeny)
	require.NoError(t, err)

	assert.Equal(t, Public, table.Classify("/reports"))
	assert.Equal(t, Protected, table.Classify("/reports/monthly"))
}

func TestTable_PathIsCleanedBeforeMatching(t *testing.T) {
	t.Parallel()

	table := newDefaultTable(t)

	assert.Equal(t, Admin, table.Classify("/public/../admin"))
	assert.Equal(t, Admin, table.Classify("//admin"))
	assert.Equal(t, Admin, table.Classify("/%61dmin"))
	assert.Equal(t, Protected, table.Classify("/ＤＡＳＨＢＯＡＲＤ"))
}

func TestTable_CapabilityOf(t *testing.T) {
	t.Parallel()

	table := newDefaultTable(t)

	capability, pattern, ok := table.CapabilityOf("/api/payments/1")
	require.True(t, ok)
	assert.Equal(t, CapabilityFundOperation, capability)
	assert.Equal(t, "/api/payments", pattern)

	_, _, ok = table.CapabilityOf("/dashboard")
	assert.False(t, ok)

	_, _, ok = table.CapabilityOf("/nowhere")
	assert.False(t, ok)
}

func TestTable_CheckCoverage(t *testing.T) {
	t.Parallel()

	table := newDefaultTable(t)

	require.NoError(t, table.CheckCoverage([]string{"/", "/dashboard", "/api/accounts"}))

	err := table.CheckCoverage([]string{"/dashboard", "/beta", "/labs"})
	require.ErrorIs(t, err, ErrUnclassifiedRoute)
	assert.Contains(t, err.Error(), "/beta, /labs")
}

func TestTable_CheckCoverageIgnoresAllowPolicy(t *testing.T) {
	t.Parallel()

	table, err := FromConfig(&config.RoutingConfig{DefaultPolicy: config.PolicyAllow})
	require.NoError(t, err)
	assert.Equal(t, PolicyAllow, table.DefaultPolicy())

	assert.ErrorIs(t, table.CheckCoverage([]string{"/beta"}), ErrUnclassifiedRoute)
}

func TestFromConfig_CustomRoutes(t *testing.T) {
	t.Parallel()

	table, err := FromConfig(&config.RoutingConfig{
		DefaultPolicy: config.PolicyDeny,
		Routes: []config.RouteRule{
			{Pattern: "/", Match: config.MatchExact, Classification: config.ClassPublic},
			{Pattern: "/portal", Match: config.MatchPrefix, Classification: config.ClassProtected, Capability: config.CapabilityReadable},
		},
	})
	require.NoError(t, err)

	assert.Len(t, table.Rules(), 2)
	assert.Equal(t, Protected, table.Classify("/portal/home"))
	assert.Equal(t, Unclassified, table.Classify("/dashboard"))
	assert.Equal(t, "/portal", table.Rules()[0].Pattern)
}

func TestFromConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.RoutingConfig
	}{
		{
			name: "unknown policy",
			cfg:  &config.RoutingConfig{DefaultPolicy: "maybe"},
		},
		{
			name: "unknown classification",
			cfg: &config.RoutingConfig{Routes: []config.RouteRule{
				{Pattern: "/x", Match: config.MatchExact, Classification: "secret"},
			}},
		},
		{
			name: "unclassified target",
			cfg: &config.RoutingConfig{Routes: []config.RouteRule{
				{Pattern: "/x", Match: config.MatchExact, Classification: config.ClassUnclassified},
			}},
		},
		{
			name: "unknown capability",
			cfg: &config.RoutingConfig{Routes: []config.RouteRule{
				{Pattern: "/x", Match: config.MatchExact, Classification: config.ClassPublic, Capability: "teleport"},
			}},
		},
		{
			name: "unknown match",
			cfg: &config.RoutingConfig{Routes: []config.RouteRule{
				{Pattern: "/x", Match: "regex", Classification: config.ClassPublic},
			}},
		},
		{
			name: "duplicate",
			cfg: &config.RoutingConfig{Routes: []config.RouteRule{
				{Pattern: "/x/", Match: config.MatchPrefix, Classification: config.ClassPublic},
				{Pattern: "/X", Match: config.MatchPrefix, Classification: config.ClassProtected},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FromConfig(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestNewTable_EmptyPattern(t *testing.T) {
	t.Parallel()

	_, err := NewTable([]Rule{{Pattern: " ", Classification: Public}}, PolicyDeny)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestClassification_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "mfa-setup", MFASetup.String())
	assert.Equal(t, "protected", Protected.String())
	assert.Equal(t, "admin", Admin.String())
	assert.Equal(t, "unclassified", Unclassified.String())

	assert.True(t, Admin.RequiresTenant())
	assert.True(t, MFASetup.RequiresTenant())
	assert.False(t, Public.RequiresTenant())
	assert.False(t, Unclassified.RequiresTenant())
}

func TestCapability_Parse(t *testing.T) {
	t.Parallel()

	for _, c := range []Capability{CapabilityNone, CapabilityReadable, CapabilityMutating, CapabilityFundOperation} {
		got, err := ParseCapability(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}
