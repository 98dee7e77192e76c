package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/middleware"
	"github.com/tradeloom/tradeloom/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth     *service.AuthService
	Tenants  *service.TenantService
	Searcher *service.SearchService

	Customers      *service.CustomerService
	Suppliers      *service.SupplierService
	Contacts       *service.ContactService
	Plants         *service.PlantService
	Carriers       *service.CarrierService
	PurchaseOrders *service.PurchaseOrderService

	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// --- Health ---

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Auth ---

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GuestLogin handles POST /api/v1/auth/guest
func (h *Handlers) GuestLogin(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Auth.GuestLogin(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "guest access is not available")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	profile, err := h.Auth.Profile(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// --- Current tenant ---

type currentTenantResponse struct {
	Tenant tenant.Descriptor `json:"tenant"`
	Role   tenant.Role       `json:"role,omitempty"`
	Source string            `json:"source"`
}

// CurrentTenant handles GET /api/v1/tenant
func (h *Handlers) CurrentTenant(w http.ResponseWriter, r *http.Request) {
	res := middleware.ResolutionFromContext(r.Context())
	if res == nil {
		writeError(w, http.StatusBadRequest, "tenant not resolved")
		return
	}
	writeJSON(w, http.StatusOK, currentTenantResponse{
		Tenant: res.Tenant.Describe(),
		Role:   res.Scope.Role(),
		Source: res.Source,
	})
}

// --- Search ---

// Search handles GET /api/v1/search?q=
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Searcher.Search(r.Context(), middleware.ScopeFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, r, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Tenant administration ---

// ListTenants handles GET /api/v1/admin/tenants
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tenants.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if list == nil {
		list = []tenant.Tenant{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateTenant handles POST /api/v1/admin/tenants
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.CreateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tenants.Create(r.Context(), req, service.SourceAdmin)
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTenant handles GET /api/v1/admin/tenants/{id}
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tenants.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTenant handles PUT /api/v1/admin/tenants/{id}
func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.UpdateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tenants.Update(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListTenantMembers handles GET /api/v1/admin/tenants/{id}/members
func (h *Handlers) ListTenantMembers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tenants.ListMembers(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	if list == nil {
		list = []tenant.Membership{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AddTenantMember handles POST /api/v1/admin/tenants/{id}/members
func (h *Handlers) AddTenantMember(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.MembershipRequest](w, r)
	if !ok {
		return
	}
	m, err := h.Tenants.AddMember(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, r, err, "tenant or user not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListUsers handles GET /api/v1/admin/users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if list == nil {
		list = []user.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateUser handles POST /api/v1/admin/users
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
