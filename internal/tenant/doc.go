// Package tenant resolves the tenant that owns a request host.
//
// Development hosts map to a fixed demo tenant without I/O. Every other host
// is looked up in a Directory (static configuration, the tenant HTTP service
// or Postgres). Active tenants are cached by host for a short TTL in the
// shared cache.Cache; misses and failures are never cached.
//
// Resolution never falls back to another tenant: an unknown host is
// ErrTenantNotFound, a suspended or inactive tenant is ErrTenantSuspended and
// a directory that cannot answer in time is ErrTenantUnavailable.
package tenant
