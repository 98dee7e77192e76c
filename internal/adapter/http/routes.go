package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router.
//
// Routes under the tenant group run RequireTenant first; tenantMW is
// appended after it (idempotency needs the resolved tenant).
func MountRoutes(r chi.Router, h *Handlers, resolver middleware.TenantResolver, tenantMW ...func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth
		r.Post("/auth/login", h.Login)
		r.Post("/auth/guest", h.GuestLogin)
		r.Get("/auth/me", h.Me)

		// Tenant-scoped API
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTenant(resolver))
			r.Use(tenantMW...)

			r.Get("/tenant", h.CurrentTenant)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriteRole(tenant.RoleUser))

				r.Get("/search", h.Search)

				mountEntity(r, "/customers", h.Customers)
				mountEntity(r, "/suppliers", h.Suppliers)
				mountEntity(r, "/contacts", h.Contacts)
				mountEntity(r, "/plants", h.Plants)
				mountEntity(r, "/carriers", h.Carriers)
				mountEntity(r, "/purchase-orders", h.PurchaseOrders)
			})
		})

		// Platform administration
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireSuperuser)

			r.Get("/tenants", h.ListTenants)
			r.Post("/tenants", h.CreateTenant)
			r.Get("/tenants/{id}", h.GetTenant)
			r.Put("/tenants/{id}", h.UpdateTenant)
			r.Get("/tenants/{id}/members", h.ListTenantMembers)
			r.Post("/tenants/{id}/members", h.AddTenantMember)

			r.Get("/users", h.ListUsers)
			r.Post("/users", h.CreateUser)
		})
	})
}
