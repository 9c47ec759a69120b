package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// Directory looks tenants up by domain. Lookup returns ErrTenantNotFound
// when no tenant owns the domain; any other error means the directory could
// not answer.
type Directory interface {
	Lookup(ctx context.Context, domain string) (*Tenant, error)
	Close() error
}

// NewDirectory builds the directory selected by cfg.
func NewDirectory(
	ctx context.Context,
	cfg *config.DirectoryConfig,
	timeout time.Duration,
	logger observability.Logger,
) (Directory, error) {
	switch cfg.Type {
	case "", config.DirectoryStatic:
		return NewStaticDirectory(cfg.Tenants), nil
	case config.DirectoryHTTP:
		return NewHTTPDirectory(cfg.BaseURL, &cfg.Breaker, timeout, logger)
	case config.DirectoryPostgres:
		return NewPostgresDirectory(ctx, &cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported tenant directory type: %s", cfg.Type)
	}
}

// StaticDirectory serves tenants listed in configuration.
type StaticDirectory struct {
	byDomain map[string]*Tenant
}

// NewStaticDirectory indexes entries by domain.
func NewStaticDirectory(entries []config.TenantEntry) *StaticDirectory {
	d := &StaticDirectory{byDomain: make(map[string]*Tenant, len(entries))}
	for i := range entries {
		t := FromEntry(&entries[i])
		d.byDomain[t.Domain] = t
	}
	return d
}

// Lookup returns a copy of the tenant owning domain.
func (d *StaticDirectory) Lookup(_ context.Context, domain string) (*Tenant, error) {
	t, ok := d.byDomain[domain]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

// Close is a no-op.
func (d *StaticDirectory) Close() error {
	return nil
}
