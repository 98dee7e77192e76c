package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/service"
)

type identityCtxKey struct{}

// publicPaths are reachable without a token. A valid token on a public path
// is still attached so tenant resolution can use it.
var publicPaths = map[string]bool{
	"/health":            true,
	"/api/v1/auth/login": true,
	"/api/v1/auth/guest": true,
	"/api/v1/tenant":     true,
}

// devIdentity is injected when authentication is disabled.
var devIdentity = user.Identity{
	UserID:    "00000000-0000-0000-0000-000000000000",
	Email:     "admin@localhost",
	Name:      "Admin",
	Superuser: true,
}

// Auth returns middleware that validates Bearer access tokens and attaches
// the caller's Identity. When authEnabled is false, a development superuser
// is injected instead.
func Auth(authSvc *service.AuthService, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled {
				id := devIdentity
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &id)))
				return
			}

			public := publicPaths[r.URL.Path]

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			id, err := authSvc.ValidateToken(token)
			if err != nil {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// IdentityFromContext returns the authenticated caller, or nil for
// anonymous requests.
func IdentityFromContext(ctx context.Context) *user.Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*user.Identity)
	return id
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *user.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}
