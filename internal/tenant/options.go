package tenant

import "net/http"

// Resolver extracts a tenant identifier from a request. It returns an empty
// string when the request carries no identifier it understands.
type Resolver func(r *http.Request) (string, error)

// ErrorHandler writes the response for a request whose tenant could not be
// resolved.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures Middleware.
type Option func(*config)

type config struct {
	header       string
	defaultID    string
	require      bool
	resolvers    []Resolver
	errorHandler ErrorHandler
	onEnter      func(tenantID string)
	onRelease    func(tenantID string)
}

// WithHeader sets the header the tenant is read from. Default is X-Tenant-ID.
func WithHeader(name string) Option {
	return func(c *config) {
		if name != "" {
			c.header = name
		}
	}
}

// WithDefault sets the tenant used when a request names none.
func WithDefault(id string) Option {
	return func(c *config) {
		if id != "" {
			c.defaultID = id
		}
	}
}

// WithRequired rejects requests that do not name a tenant instead of
// falling back to the default tenant.
func WithRequired(required bool) Option {
	return func(c *config) {
		c.require = required
	}
}

// WithResolver adds a resolver consulted before the tenant header.
// Resolvers run in the order they were added; the first non-empty result wins.
func WithResolver(r Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolvers = append(c.resolvers, r)
		}
	}
}

// WithErrorHandler overrides the response written when resolution fails.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithHooks registers callbacks run when a request scope is entered and
// released. Either may be nil.
func WithHooks(onEnter, onRelease func(tenantID string)) Option {
	return func(c *config) {
		c.onEnter = onEnter
		c.onRelease = onRelease
	}
}
