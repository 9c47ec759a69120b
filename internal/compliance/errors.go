package compliance

import (
	"errors"
	"fmt"
)

var (
	// ErrComplianceBlocked is wrapped by every rejection.
	ErrComplianceBlocked = errors.New("compliance blocked")

	// ErrInvalidRule is returned when an expression rule does not compile.
	ErrInvalidRule = errors.New("invalid compliance rule")
)

// BlockedError carries the reason of a rejection.
type BlockedError struct {
	Reason Reason
	Rule   string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("compliance blocked: %s (rule %q)", e.Reason, e.Rule)
}

// Unwrap returns ErrComplianceBlocked.
func (e *BlockedError) Unwrap() error {
	return ErrComplianceBlocked
}
