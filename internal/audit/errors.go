package audit

import "errors"

// ErrAuditWriteFailed wraps store errors of failed writes. It is logged and
// counted, never returned to a request.
var ErrAuditWriteFailed = errors.New("audit write failed")

// ErrSinkClosed is returned by Close when called twice.
var ErrSinkClosed = errors.New("audit sink closed")

// ErrKeyCollision is returned when every candidate id for a record is
// already taken in the store.
var ErrKeyCollision = errors.New("audit key collision")
