package routing

import "github.com/vyrodovalexey/edgegate/internal/config"

var publicPages = []string{
	"/", "/register", "/forgot-password", "/reset-password",
	"/terms", "/privacy", "/legal", "/cookies",
}

var assetPrefixes = []string{"/_next/", "/static/", "/favicon.ico"}

var protectedPrefixes = []string{
	"/dashboard", "/accounts", "/savings", "/loans", "/settings",
	"/reports", "/customers", "/investments", "/help",
}

// DefaultRules returns the built-in route table of the banking frontend.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 32)

	for _, p := range publicPages {
		rules = append(rules, Rule{Pattern: p, Match: config.MatchExact, Classification: Public})
	}
	for _, p := range assetPrefixes {
		rules = append(rules, Rule{
			Pattern: p, Match: config.MatchPrefix,
			Classification: Public, Capability: CapabilityReadable,
		})
	}

	rules = append(rules, Rule{
		Pattern: "/mfa-setup", Match: config.MatchPrefix,
		Classification: MFASetup, Capability: CapabilityMutating,
	})

	for _, p := range protectedPrefixes {
		rules = append(rules, Rule{Pattern: p, Match: config.MatchPrefix, Classification: Protected})
	}
	rules = append(rules,
		Rule{Pattern: "/transactions", Match: config.MatchPrefix, Classification: Protected, Capability: CapabilityReadable},
		Rule{Pattern: "/payments", Match: config.MatchPrefix, Classification: Protected, Capability: CapabilityFundOperation},
		Rule{Pattern: "/api/", Match: config.MatchPrefix, Classification: Protected, Capability: CapabilityMutating},
		Rule{Pattern: "/api/transactions", Match: config.MatchPrefix, Classification: Protected, Capability: CapabilityReadable},
		Rule{Pattern: "/api/payments", Match: config.MatchPrefix, Classification: Protected, Capability: CapabilityFundOperation},
		Rule{Pattern: "/api/transfers", Match: config.MatchPrefix, Classification: Protected, Capability: CapabilityFundOperation},
		Rule{Pattern: "/admin", Match: config.MatchPrefix, Classification: Admin, Capability: CapabilityMutating},
		Rule{Pattern: "/api/admin", Match: config.MatchPrefix, Classification: Admin, Capability: CapabilityMutating},
	)

	return rules
}
