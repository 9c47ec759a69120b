package compliance

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/routing"
)

var anyMethod = rapid.SampledFrom([]string{
	http.MethodGet, http.MethodHead, http.MethodOptions,
	http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
})

// Any path containing a deny-list term is rejected, whatever its case,
// surroundings or method.
func TestDenyListAlwaysRejectsProperty(t *testing.T) {
	cfg := config.DefaultConfig().Compliance
	terms := append(append([]string{}, cfg.RoutePrefixes...), cfg.OperationKeywords...)

	table, err := routing.FromConfig(&config.RoutingConfig{})
	require.NoError(t, err)
	f, err := New(&cfg, WithCapabilities(table))
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		term := rapid.SampledFrom(terms).Draw(t, "term")
		if rapid.Bool().Draw(t, "upper") {
			term = strings.ToUpper(term)
		}
		prefix := rapid.StringMatching(`(/[a-zA-Z0-9_-]{0,8}){0,3}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[a-zA-Z0-9_/-]{0,12}`).Draw(t, "suffix")
		method := anyMethod.Draw(t, "method")

		d := f.Evaluate(&Request{Path: prefix + "/" + term + suffix, Method: method})
		if !d.Blocked {
			t.Fatalf("path %q with %s passed", prefix+"/"+term+suffix, method)
		}
		if d.Reason != ReasonProhibitedRoute && d.Reason != ReasonProhibitedOperation {
			t.Fatalf("unexpected reason %q", d.Reason)
		}
	})
}

// Percent-encoding any single letter of a term does not hide it.
func TestEncodedTermRejectedProperty(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		term := rapid.SampledFrom([]string{"payment", "transfer", "withdraw", "wallet", "payout"}).Draw(t, "term")
		i := rapid.IntRange(0, len(term)-1).Draw(t, "index")
		encoded := term[:i] + "%" + strings.ToUpper(hexByte(term[i])) + term[i+1:]

		if d := f.Evaluate(&Request{Path: "/api/" + encoded, Method: http.MethodGet}); !d.Blocked {
			t.Fatalf("encoded path %q passed", encoded)
		}
	})
}

// Safe methods never trip the read-only rule.
func TestReadOnlySafeMethodsProperty(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		tail := rapid.StringMatching(`[bckxz0-9/]{0,16}`).Draw(t, "tail")
		method := rapid.SampledFrom([]string{http.MethodGet, http.MethodHead, http.MethodOptions}).Draw(t, "method")

		if d := f.Evaluate(&Request{Path: "/api/transactions/" + tail, Method: method}); d.Blocked {
			t.Fatalf("%s %q blocked: %s", method, tail, d.Reason)
		}
	})
}

// Paths that cannot spell any term pass for every method.
func TestUnrelatedPathsPassProperty(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		path := "/" + rapid.StringMatching(`[bckxz0-9/]{0,24}`).Draw(t, "path")
		method := anyMethod.Draw(t, "method")

		if d := f.Evaluate(&Request{Path: path, Method: method}); d.Blocked {
			t.Fatalf("%s %q blocked: %s", method, path, d.Reason)
		}
	})
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}
