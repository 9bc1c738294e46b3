package tenant

import (
	"errors"
	"net/http"
)

// Header is the request header carrying the tenant identifier.
const Header = "X-Tenant-ID"

// ErrMissingTenant is returned in strict mode when a request names no tenant.
var ErrMissingTenant = errors.New("tenant: missing tenant identifier")

// Middleware resolves the tenant of every request and installs it into the
// request context for the duration of the downstream handler. The scope is
// released when the handler returns or panics.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		header:       Header,
		defaultID:    DefaultID,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := cfg.resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			ctx, release := Enter(r.Context(), id)
			if cfg.onEnter != nil {
				cfg.onEnter(id)
			}
			defer func() {
				release()
				if cfg.onRelease != nil {
					cfg.onRelease(id)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (c *config) resolve(r *http.Request) (string, error) {
	for _, resolve := range c.resolvers {
		id, err := resolve(r)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}

	if id := r.Header.Get(c.header); id != "" {
		return id, nil
	}
	if c.require {
		return "", ErrMissingTenant
	}
	return c.defaultID, nil
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, ErrMissingTenant) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
