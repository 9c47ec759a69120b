package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Rule maps a path pattern to a classification and capability.
type Rule struct {
	Pattern        string
	Match          string
	Classification Classification
	Capability     Capability
}

// Result is the outcome of a table lookup.
type Result struct {
	// Path is the cleaned path that was matched.
	Path           string
	Classification Classification
	Capability     Capability

	// Rule is the matching rule; nil when the path is unclassified.
	Rule *Rule
}

// Matched reports whether a rule covered the path.
func (r Result) Matched() bool {
	return r.Rule != nil
}

type compiledRule struct {
	rule    Rule
	matcher PathMatcher
}

// Table is an immutable route table.
type Table struct {
	rules  []compiledRule
	policy Policy
}

// NewTable compiles rules into a table. Patterns are cleaned the same way
// request paths are, so "/api/" and "/API" both become "/api".
func NewTable(rules []Rule, policy Policy) (*Table, error) {
	compiled := make([]compiledRule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))

	for i := range rules {
		r := rules[i]
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("%w: rule %d has an empty pattern", ErrInvalidRule, i)
		}
		if r.Classification == Unclassified {
			return nil, fmt.Errorf("%w: rule %q has no classification", ErrInvalidRule, r.Pattern)
		}
		r.Pattern = util.CleanPath(r.Pattern)
		if r.Match == "" {
			r.Match = config.MatchPrefix
		}

		var m PathMatcher
		switch r.Match {
		case config.MatchExact:
			m = NewExactMatcher(r.Pattern)
		case config.MatchPrefix:
			m = NewPrefixMatcher(r.Pattern)
		default:
			return nil, fmt.Errorf("%w: rule %q has unknown match %q", ErrInvalidRule, r.Pattern, r.Match)
		}

		key := r.Match + " " + r.Pattern
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %s rule %q", ErrInvalidRule, r.Match, r.Pattern)
		}
		seen[key] = struct{}{}

		compiled = append(compiled, compiledRule{rule: r, matcher: m})
	}

	// Longest pattern first; exact before prefix at equal length.
	sort.SliceStable(compiled, func(i, j int) bool {
		a, b := compiled[i].rule, compiled[j].rule
		if len(a.Pattern) != len(b.Pattern) {
			return len(a.Pattern) > len(b.Pattern)
		}
		return a.Match == config.MatchExact && b.Match != config.MatchExact
	})

	return &Table{rules: compiled, policy: policy}, nil
}

// FromConfig builds a table from configuration. An empty route list uses
// DefaultRules.
func FromConfig(cfg *config.RoutingConfig) (*Table, error) {
	if cfg == nil {
		return NewTable(DefaultRules(), PolicyDeny)
	}

	policy, err := ParsePolicy(cfg.DefaultPolicy)
	if err != nil {
		return nil, err
	}
	if len(cfg.Routes) == 0 {
		return NewTable(DefaultRules(), policy)
	}

	rules := make([]Rule, 0, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		class, err := ParseClassification(rc.Classification)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", rc.Pattern, err)
		}
		capability, err := ParseCapability(rc.Capability)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", rc.Pattern, err)
		}
		rules = append(rules, Rule{
			Pattern:        rc.Pattern,
			Match:          rc.Match,
			Classification: class,
			Capability:     capability,
		})
	}
	return NewTable(rules, policy)
}

// Lookup finds the rule covering path. path may be raw or escaped; it is
// cleaned before matching.
func (t *Table) Lookup(path string) Result {
	clean := util.CleanPath(path)
	for i := range t.rules {
		cr := &t.rules[i]
		if cr.matcher.Match(clean) {
			rule := cr.rule
			return Result{
				Path:           clean,
				Classification: rule.Classification,
				Capability:     rule.Capability,
				Rule:           &rule,
			}
		}
	}
	return Result{Path: clean, Classification: Unclassified}
}

// Classify returns the classification of path.
func (t *Table) Classify(path string) Classification {
	return t.Lookup(path).Classification
}

// CapabilityOf returns the capability tag of the rule covering path.
func (t *Table) CapabilityOf(path string) (Capability, string, bool) {
	res := t.Lookup(path)
	if !res.Matched() || res.Capability == CapabilityNone {
		return CapabilityNone, "", false
	}
	return res.Capability, res.Rule.Pattern, true
}

// DefaultPolicy returns the policy for unclassified paths.
func (t *Table) DefaultPolicy() Policy {
	return t.policy
}

// Rules returns a copy of the rules in match order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i := range t.rules {
		out[i] = t.rules[i].rule
	}
	return out
}

// CheckCoverage verifies that every path is classified. It ignores the
// default policy: an application route must always be covered by a rule.
func (t *Table) CheckCoverage(paths []string) error {
	var missing []string
	for _, p := range paths {
		if !t.Lookup(p).Matched() {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnclassifiedRoute, strings.Join(missing, ", "))
	}
	return nil
}
