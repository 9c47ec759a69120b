package compliance

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/routing"
)

func newDefaultFilter(t *testing.T, opts ...Option) *Filter {
	t.Helper()

	f, err := New(&config.DefaultConfig().Compliance, opts...)
	require.NoError(t, err)
	return f
}

func newRouteTable(t *testing.T) *routing.Table {
	t.Helper()

	table, err := routing.FromConfig(&config.RoutingConfig{})
	require.NoError(t, err)
	return table
}

func TestFilter_DenyLists(t *testing.T) {
	t.Parallel()

	f := newDefaultFilter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantReason Reason
		wantRule   string
	}{
		{name: "transfer api", method: http.MethodPost, path: "/api/transfer", wantReason: ReasonProhibitedRoute, wantRule: "transfer"},
		{name: "payments page", method: http.MethodGet, path: "/payments", wantReason: ReasonProhibitedRoute, wantRule: "payment"},
		{name: "wallet", method: http.MethodGet, path: "/dashboard/wallet", wantReason: ReasonProhibitedRoute, wantRule: "wallet"},
		{name: "withdraw uppercase", method: http.MethodGet, path: "/API/WITHDRAW", wantReason: ReasonProhibitedRoute, wantRule: "withdraw"},
		{name: "payout", method: http.MethodGet, path: "/api/payout/1", wantReason: ReasonProhibitedOperation, wantRule: "payout"},
		{name: "charge", method: http.MethodGet, path: "/api/cards/charge", wantReason: ReasonProhibitedOperation, wantRule: "charge"},
		{name: "refund contains fund", method: http.MethodGet, path: "/reports/refunds", wantReason: ReasonProhibitedOperation, wantRule: "fund"},
		{name: "deposit", method: http.MethodGet, path: "/deposit", wantReason: ReasonProhibitedOperation, wantRule: "deposit"},
		{name: "remittance", method: http.MethodGet, path: "/remittance", wantReason: ReasonProhibitedOperation, wantRule: "remittance"},
		{name: "percent encoded", method: http.MethodGet, path: "/api/%54ransfer", wantReason: ReasonProhibitedRoute, wantRule: "transfer"},
		{name: "double encoded", method: http.MethodGet, path: "/api/%2554ransfer", wantReason: ReasonProhibitedRoute, wantRule: "transfer"},
		{name: "fullwidth", method: http.MethodGet, path: "/api/ｔｒａｎｓｆｅｒ", wantReason: ReasonProhibitedRoute, wantRule: "transfer"},
		{name: "transaction post", method: http.MethodPost, path: "/api/transactions", wantReason: ReasonReadOnlyResource, wantRule: "transaction"},
		{name: "transaction put", method: http.MethodPut, path: "/transactions/9", wantReason: ReasonReadOnlyResource, wantRule: "transaction"},
		{name: "transaction patch", method: http.MethodPatch, path: "/transactions/9", wantReason: ReasonReadOnlyResource, wantRule: "transaction"},
		{name: "transaction delete", method: http.MethodDelete, path: "/transactions/9", wantReason: ReasonReadOnlyResource, wantRule: "transaction"},
		{name: "lowercase method", method: "post", path: "/transactions", wantReason: ReasonReadOnlyResource, wantRule: "transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := f.Evaluate(&Request{Path: tt.path, Method: tt.method})
			require.True(t, d.Blocked)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.wantRule, d.Rule)
			assert.Equal(t, http.StatusForbidden, d.Status)
		})
	}
}

func TestFilter_Passes(t *testing.T) {
	t.Parallel()

	f := newDefaultFilter(t)

	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/"},
		{method: http.MethodGet, path: "/dashboard"},
		{method: http.MethodPost, path: "/api/accounts"},
		{method: http.MethodGet, path: "/api/transactions"},
		{method: http.MethodHead, path: "/transactions"},
		{method: http.MethodOptions, path: "/transactions"},
		{method: http.MethodPost, path: "/api/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			d := f.Evaluate(&Request{Path: tt.path, Method: tt.method})
			assert.False(t, d.Blocked)
			assert.NoError(t, d.Err())
		})
	}
}

func TestFilter_Capabilities(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Compliance
	cfg.RoutePrefixes = []string{}
	cfg.OperationKeywords = []string{}
	cfg.ReadOnlyKeywords = []string{}

	table, err := routing.NewTable([]routing.Rule{
		{Pattern: "/api/moves", Classification: routing.Protected, Capability: routing.CapabilityFundOperation},
		{Pattern: "/ledger", Classification: routing.Protected, Capability: routing.CapabilityReadable},
		{Pattern: "/api", Classification: routing.Protected, Capability: routing.CapabilityMutating},
	}, routing.PolicyDeny)
	require.NoError(t, err)

	f, err := New(&cfg, WithCapabilities(table))
	require.NoError(t, err)

	d := f.Evaluate(&Request{Path: "/api/moves/1", Method: http.MethodGet})
	require.True(t, d.Blocked)
	assert.Equal(t, ReasonProhibitedOperation, d.Reason)
	assert.Equal(t, "/api/moves", d.Rule)

	d = f.Evaluate(&Request{Path: "/ledger", Method: http.MethodPost})
	require.True(t, d.Blocked)
	assert.Equal(t, ReasonReadOnlyResource, d.Reason)

	assert.False(t, f.Evaluate(&Request{Path: "/ledger", Method: http.MethodGet}).Blocked)
	assert.False(t, f.Evaluate(&Request{Path: "/api/profile", Method: http.MethodPost}).Blocked)
	assert.False(t, f.Evaluate(&Request{Path: "/elsewhere", Method: http.MethodDelete}).Blocked)
}

func TestFilter_DefaultTableCapabilities(t *testing.T) {
	t.Parallel()

	f := newDefaultFilter(t, WithCapabilities(newRouteTable(t)))

	d := f.Evaluate(&Request{Path: "/_next/static/app.js", Method: http.MethodPost})
	require.True(t, d.Blocked)
	assert.Equal(t, ReasonReadOnlyResource, d.Reason)
	assert.Equal(t, "/_next", d.Rule)

	assert.False(t, f.Evaluate(&Request{Path: "/admin/users", Method: http.MethodPost}).Blocked)
}

func TestFilter_ExpressionRules(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Compliance
	cfg.Rules = []config.ExpressionRule{
		{
			Name:       "no-crypto",
			Expression: `request.path.contains("crypto")`,
			Reason:     "prohibited_asset",
		},
		{
			Name:       "no-bulk-export",
			Expression: `request.method == "POST" && "x-bulk" in request.headers`,
		},
		{
			Name:       "missing-header",
			Expression: `request.headers["x-never"] == "1"`,
		},
	}

	f, err := New(&cfg)
	require.NoError(t, err)

	d := f.Evaluate(&Request{Path: "/api/CRYPTO/prices", Method: http.MethodGet})
	require.True(t, d.Blocked)
	assert.Equal(t, Reason("prohibited_asset"), d.Reason)
	assert.Equal(t, "no-crypto", d.Rule)

	d = f.Evaluate(&Request{
		Path:    "/api/reports",
		Method:  http.MethodPost,
		Headers: http.Header{"X-Bulk": []string{"yes"}},
	})
	require.True(t, d.Blocked)
	assert.Equal(t, ReasonPolicyRule, d.Reason)
	assert.Equal(t, "no-bulk-export", d.Rule)

	assert.False(t, f.Evaluate(&Request{Path: "/api/reports", Method: http.MethodGet}).Blocked)
}

func TestNew_InvalidExpression(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Compliance
	cfg.Rules = []config.ExpressionRule{{Name: "broken", Expression: `request.path.contains(`}}

	_, err := New(&cfg)
	assert.ErrorIs(t, err, ErrInvalidRule)

	cfg.Rules = []config.ExpressionRule{{Name: "unknown-var", Expression: `tenant.id == "x"`}}
	_, err = New(&cfg)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	f, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "software-only-platform", f.Policy())
	assert.True(t, f.Evaluate(&Request{Path: "/wallet", Method: http.MethodGet}).Blocked)
}

func TestFilter_CheckAndRejection(t *testing.T) {
	t.Parallel()

	f := newDefaultFilter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transfer", nil)
	d := f.Check(req)
	require.True(t, d.Blocked)

	err := d.Err()
	assert.ErrorIs(t, err, ErrComplianceBlocked)
	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, ReasonProhibitedRoute, blocked.Reason)
	assert.Contains(t, err.Error(), "prohibited_route")

	body, err := json.Marshal(f.Rejection(d, req, "req-1"))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "compliance_violation", got["error"])
	assert.NotEmpty(t, got["message"])
	assert.Equal(t, "/api/transfer", got["path"])
	assert.Equal(t, "POST", got["method"])
	assert.Equal(t, "req-1", got["request_id"])

	notes, ok := got["compliance"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "prohibited_route", notes["reason"])
	assert.Equal(t, "transfer", notes["rule"])
	assert.Equal(t, "software-only-platform", notes["policy"])
}
