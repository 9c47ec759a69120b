package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

const lookupTenantQuery = `
	SELECT id, name, domain, status, COALESCE(subscription_plan, '') AS subscription_plan,
	       COALESCE(settings, '{}'::jsonb) AS settings
	FROM tenants
	WHERE domain = $1
	LIMIT 1
`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory reads tenants from the platform database.
type PostgresDirectory struct {
	db    rowQuerier
	close func()
}

// NewPostgresDirectory creates a pool for cfg.DSN. Connections are opened
// lazily.
func NewPostgresDirectory(ctx context.Context, cfg *config.PostgresConfig) (*PostgresDirectory, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &PostgresDirectory{db: pool, close: pool.Close}, nil
}

// Lookup selects the tenant owning domain.
func (d *PostgresDirectory) Lookup(ctx context.Context, domain string) (*Tenant, error) {
	var (
		t        Tenant
		status   string
		settings []byte
	)
	err := d.db.QueryRow(ctx, lookupTenantQuery, domain).Scan(
		&t.ID,
		&t.Name,
		&t.Domain,
		&status,
		&t.SubscriptionPlan,
		&settings,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	t.Status = Status(status)

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode tenant settings: %w", err)
		}
	}
	return &t, nil
}

// Close closes the pool.
func (d *PostgresDirectory) Close() error {
	if d.close != nil {
		d.close()
	}
	return nil
}
