package tenant

import (
	"context"
	"sync"
)

type scope struct {
	mu     sync.Mutex
	done   bool
	domain string
	tenant *Tenant
	err    error
}

type scopeContextKey struct{}

// WithScope returns a context that memoises the first resolution made with
// it. The pipeline opens one scope per request.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, &scope{})
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeContextKey{}).(*scope)
	return s
}
