package tenant

import (
	"context"
	"strings"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

// Status is the lifecycle state of a tenant.
type Status string

// Tenant statuses.
const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

// Settings holds presentation settings of a tenant.
type Settings struct {
	Branding map[string]string `json:"branding,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Timezone string            `json:"timezone,omitempty"`
}

// Tenant is an isolated customer organisation identified by its domain.
type Tenant struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Domain           string   `json:"domain"`
	Status           Status   `json:"status"`
	SubscriptionPlan string   `json:"subscription_plan"`
	Settings         Settings `json:"settings"`
}

// Active reports whether the tenant may serve requests.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive
}

// FromEntry converts a configuration entry.
func FromEntry(e *config.TenantEntry) *Tenant {
	status := Status(strings.ToLower(e.Status))
	if status == "" {
		status = StatusActive
	}
	return &Tenant{
		ID:               e.ID,
		Name:             e.Name,
		Domain:           strings.ToLower(e.Domain),
		Status:           status,
		SubscriptionPlan: e.SubscriptionPlan,
		Settings: Settings{
			Branding: e.Branding,
			Currency: e.Currency,
			Timezone: e.Timezone,
		},
	}
}

type tenantContextKey struct{}

// NewContext returns a context carrying t.
func NewContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, t)
}

// FromContext returns the tenant stored in ctx.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantContextKey{}).(*Tenant)
	return t, ok && t != nil
}
