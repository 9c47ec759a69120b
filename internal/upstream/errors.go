package upstream

import "errors"

// ErrInvalidTarget is returned when the upstream URL cannot be used.
var ErrInvalidTarget = errors.New("invalid upstream target")
