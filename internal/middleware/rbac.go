package middleware

import (
	"net/http"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

// RequireTenantRole restricts access to callers whose role in the resolved
// tenant is at least min. It must run after RequireTenant.
func RequireTenantRole(min tenant.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()) == nil {
				writeJSONError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			if !ScopeFromContext(r.Context()).Role().AtLeast(min) {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWriteRole gates mutating methods at min while letting any member
// read. Anonymous callers are rejected for every method.
func RequireWriteRole(min tenant.Role) func(http.Handler) http.Handler {
	read := RequireTenantRole(tenant.RoleReadonly)
	write := RequireTenantRole(min)
	return func(next http.Handler) http.Handler {
		readNext, writeNext := read(next), write(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				readNext.ServeHTTP(w, r)
			default:
				writeNext.ServeHTTP(w, r)
			}
		})
	}
}

// RequireSuperuser restricts access to platform superusers.
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeJSONError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if !id.Superuser {
			writeJSONError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
