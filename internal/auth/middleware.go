package auth

import (
	"net/http"
	"strings"

	"dataservices/internal/tenant"
)

// TenantResolver reads the tenant from a bearer token. Requests without an
// Authorization header resolve to nothing so the tenant header still applies;
// a malformed or invalid token is an error.
func TenantResolver(s *Signer) tenant.Resolver {
	return func(r *http.Request) (string, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return "", nil
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return "", ErrInvalidToken
		}

		claims, err := s.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return "", err
		}
		return claims.TenantID, nil
	}
}
