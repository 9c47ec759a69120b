// Package routing classifies request paths into access tiers.
//
// A Table is built once from configuration and never mutated. Rules are
// matched against the cleaned, case folded path: the longest pattern wins
// and an exact rule beats a prefix rule of the same length. Prefix rules
// only match on path segment boundaries, so "/help" does not cover
// "/helpdesk".
//
// Paths no rule covers are Unclassified. What happens to them is decided by
// the table's Policy: PolicyDeny rejects them, PolicyAllow treats them as
// public.
package routing
