package tenant

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is returned when no tenant owns the host.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantSuspended is returned for suspended or inactive tenants.
	ErrTenantSuspended = errors.New("tenant suspended")

	// ErrTenantUnavailable is returned when the directory cannot answer:
	// timeout, open breaker or transport failure.
	ErrTenantUnavailable = errors.New("tenant directory unavailable")
)

// ResolutionError records the host a resolution failed for.
type ResolutionError struct {
	Host string
	Err  error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve tenant for host %q: %v", e.Host, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}
