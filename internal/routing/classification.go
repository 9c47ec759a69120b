package routing

import (
	"fmt"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

// Classification is the access tier of a route.
type Classification uint8

// Route classifications.
const (
	Unclassified Classification = iota
	Public
	MFASetup
	Protected
	Admin
)

// String returns the configuration name of the classification.
func (c Classification) String() string {
	switch c {
	case Public:
		return config.ClassPublic
	case MFASetup:
		return config.ClassMFASetup
	case Protected:
		return config.ClassProtected
	case Admin:
		return config.ClassAdmin
	default:
		return config.ClassUnclassified
	}
}

// RequiresTenant reports whether requests in this tier resolve a tenant and
// pass the auth gate.
func (c Classification) RequiresTenant() bool {
	switch c {
	case MFASetup, Protected, Admin:
		return true
	default:
		return false
	}
}

// ParseClassification parses a configuration name. Unclassified is not a
// valid rule target.
func ParseClassification(s string) (Classification, error) {
	switch s {
	case config.ClassPublic:
		return Public, nil
	case config.ClassMFASetup:
		return MFASetup, nil
	case config.ClassProtected:
		return Protected, nil
	case config.ClassAdmin:
		return Admin, nil
	default:
		return Unclassified, fmt.Errorf("%w: unknown classification %q", ErrInvalidRule, s)
	}
}

// Capability tags what a route does, independent of its path text.
type Capability uint8

// Route capabilities. CapabilityNone means the rule carries no tag.
const (
	CapabilityNone Capability = iota
	CapabilityReadable
	CapabilityMutating
	CapabilityFundOperation
)

// String returns the configuration name of the capability.
func (c Capability) String() string {
	switch c {
	case CapabilityReadable:
		return config.CapabilityReadable
	case CapabilityMutating:
		return config.CapabilityMutating
	case CapabilityFundOperation:
		return config.CapabilityFundOperation
	default:
		return ""
	}
}

// ParseCapability parses a configuration name. The empty string is
// CapabilityNone.
func ParseCapability(s string) (Capability, error) {
	switch s {
	case "":
		return CapabilityNone, nil
	case config.CapabilityReadable:
		return CapabilityReadable, nil
	case config.CapabilityMutating:
		return CapabilityMutating, nil
	case config.CapabilityFundOperation:
		return CapabilityFundOperation, nil
	default:
		return CapabilityNone, fmt.Errorf("%w: unknown capability %q", ErrInvalidRule, s)
	}
}

// Policy decides the fate of unclassified paths.
type Policy uint8

// Unclassified path policies.
const (
	PolicyDeny Policy = iota
	PolicyAllow
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if p == PolicyAllow {
		return config.PolicyAllow
	}
	return config.PolicyDeny
}

// ParsePolicy parses a configuration name. The empty string is PolicyDeny.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", config.PolicyDeny:
		return PolicyDeny, nil
	case config.PolicyAllow:
		return PolicyAllow, nil
	default:
		return PolicyDeny, fmt.Errorf("%w: unknown default policy %q", ErrInvalidRule, s)
	}
}
