package pipeline

import (
	"fmt"

	"github.com/vyrodovalexey/edgegate/internal/auth"
	"github.com/vyrodovalexey/edgegate/internal/compliance"
	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/routing"
)

// Snapshot holds the rule tables of one configuration generation. It is
// never mutated after BuildSnapshot returns.
type Snapshot struct {
	Filter *compliance.Filter
	Table  *routing.Table
	Gate   *auth.Gate
}

// BuildSnapshot compiles the compliance filter, route table and auth gate
// from cfg. The filter consults the table for capability tags.
func BuildSnapshot(cfg *config.Config, logger observability.Logger) (*Snapshot, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	table, err := routing.FromConfig(&cfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("building route table: %w", err)
	}

	filter, err := compliance.New(&cfg.Compliance,
		compliance.WithCapabilities(table),
		compliance.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("building compliance filter: %w", err)
	}

	return &Snapshot{
		Filter: filter,
		Table:  table,
		Gate:   auth.NewGate(&cfg.Auth),
	}, nil
}
