package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/logger"
	"github.com/tradeloom/tradeloom/internal/service"
)

// HeaderTenantID carries an explicit tenant selector (id or slug).
const HeaderTenantID = "X-Tenant-ID"

// HeaderResolvedTenant echoes the bound tenant ID on the response.
const HeaderResolvedTenant = "X-Resolved-Tenant"

// hintSelectTenant tells clients to retry with an explicit tenant.
const hintSelectTenant = "select_tenant"

type resolutionCtxKey struct{}

// TenantResolver binds a request to one tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, req service.ResolveRequest) (*service.Resolution, error)
}

// RequireTenant resolves the request's tenant and stores the Resolution in
// the context. Requests that cannot be bound to exactly one tenant are
// rejected before reaching the handler.
func RequireTenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := resolver.Resolve(r.Context(), service.ResolveRequest{
				Host:     r.Host,
				Selector: r.Header.Get(HeaderTenantID),
				Identity: IdentityFromContext(r.Context()),
			})
			if err != nil {
				writeResolveError(w, r, err)
				return
			}

			w.Header().Set(HeaderResolvedTenant, res.Tenant.ID)
			ctx := context.WithValue(r.Context(), resolutionCtxKey{}, res)
			ctx = logger.WithTenantID(ctx, res.Tenant.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTenantNotResolved):
		writeJSONErrorHint(w, http.StatusBadRequest, domain.ErrTenantNotResolved.Error(), hintSelectTenant)
	case errors.Is(err, domain.ErrTenantAmbiguous):
		writeJSONErrorHint(w, http.StatusConflict, domain.ErrTenantAmbiguous.Error(), hintSelectTenant)
	case errors.Is(err, domain.ErrTenantForbidden):
		writeJSONError(w, http.StatusForbidden, domain.ErrTenantForbidden.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
	default:
		slog.ErrorContext(r.Context(), "tenant resolution failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ResolutionFromContext returns the request's resolved tenant, or nil when
// RequireTenant did not run.
func ResolutionFromContext(ctx context.Context) *service.Resolution {
	res, _ := ctx.Value(resolutionCtxKey{}).(*service.Resolution)
	return res
}

// ScopeFromContext returns the request's tenant scope. The zero Scope is
// returned when no tenant was resolved; every store call rejects it.
func ScopeFromContext(ctx context.Context) tenant.Scope {
	if res := ResolutionFromContext(ctx); res != nil {
		return res.Scope
	}
	return tenant.Scope{}
}

// WithResolution returns a copy of ctx carrying res.
func WithResolution(ctx context.Context, res *service.Resolution) context.Context {
	return context.WithValue(ctx, resolutionCtxKey{}, res)
}
