// internal/tenant/context.go
package tenant

import (
	"context"
	"errors"
	"sync"
)

// DefaultID is used when a request does not name its tenant.
const DefaultID = "default"

// ErrNoTenant is returned when the tenant is read outside a request scope
// or after the scope has been released.
var ErrNoTenant = errors.New("tenant: no tenant in context")

type contextKey struct{}

// scope holds the tenant of one request. It is only reachable through the
// request's context, so concurrent requests never share a scope.
type scope struct {
	mu       sync.RWMutex
	id       string
	released bool
}

// Enter installs tenantID into a new scope derived from ctx. The returned
// release func clears the scope; it is safe to call more than once and only
// the first call has an effect.
func Enter(ctx context.Context, tenantID string) (context.Context, func()) {
	s := &scope{id: tenantID}
	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			s.id = ""
			s.released = true
			s.mu.Unlock()
		})
	}
	return context.WithValue(ctx, contextKey{}, s), release
}

// IDFromContext returns the tenant of the current request.
func IDFromContext(ctx context.Context) (string, error) {
	s, ok := ctx.Value(contextKey{}).(*scope)
	if !ok || s == nil {
		return "", ErrNoTenant
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return "", ErrNoTenant
	}
	return s.id, nil
}

// MustIDFromContext is like IDFromContext but panics when no tenant is set.
func MustIDFromContext(ctx context.Context) string {
	id, err := IDFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return id
}
