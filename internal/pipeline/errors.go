package pipeline

import "errors"

// ErrNilSnapshot is returned when a pipeline is built or reloaded without a
// snapshot.
var ErrNilSnapshot = errors.New("pipeline snapshot is required")

// Error codes written in JSON error bodies.
const (
	codeRouteUnclassified = "route_unclassified"
	codeTenantNotFound    = "tenant_not_found"
	codeTenantSuspended   = "tenant_suspended"
	codeTenantUnavailable = "tenant_unavailable"
)

// errorBody is the JSON body of pipeline rejections.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
