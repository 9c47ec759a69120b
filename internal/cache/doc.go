// Package cache provides the key-value store shared by the tenant cache and
// the compliance audit log.
//
// Two backends implement Cache:
//
//   - memory: an LRU map with per-entry TTL, suitable for a single instance
//   - redis: go-redis client with an optional password resolved from Vault
//
// Both support prefix listing (Keys) and prefix deletion (DeletePrefix),
// which the audit log uses for inspection and the tenant cache uses for
// invalidation.
//
// All cache implementations are safe for concurrent use.
package cache
