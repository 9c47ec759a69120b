package routing

import "errors"

var (
	// ErrInvalidRule is returned when a route rule cannot be compiled.
	ErrInvalidRule = errors.New("invalid route rule")

	// ErrUnclassifiedRoute is returned by CheckCoverage when an application
	// route has no classification.
	ErrUnclassifiedRoute = errors.New("unclassified route")
)
