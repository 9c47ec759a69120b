package auth

import "errors"

var (
	// ErrAuthMissing is returned when a route needs a token and none was sent.
	ErrAuthMissing = errors.New("authentication required")

	// ErrForbidden is returned when the token's claims do not allow the route.
	ErrForbidden = errors.New("forbidden")
)
