package tenant

import "github.com/tradeloom/tradeloom/internal/domain"

// Scope is the resolved tenant context of one request. It is an immutable
// value: the only way to obtain a non-zero Scope is NewScope, and every
// business-entity store operation takes one explicitly.
type Scope struct {
	tenantID string
	role     Role
}

// NewScope binds a scope to tenantID. role is the caller's role in that
// tenant; superusers acting without a membership receive RoleOwner.
func NewScope(tenantID string, role Role) (Scope, error) {
	if tenantID == "" {
		return Scope{}, domain.ErrTenantNotResolved
	}
	return Scope{tenantID: tenantID, role: role}, nil
}

// MustScope is NewScope for callers that already hold a valid tenant ID
// (provisioning, tests). It panics on an empty ID.
func MustScope(tenantID string, role Role) Scope {
	s, err := NewScope(tenantID, role)
	if err != nil {
		panic(err)
	}
	return s
}

// TenantID returns the bound tenant. Empty for the zero Scope.
func (s Scope) TenantID() string { return s.tenantID }

// Role returns the caller's role within the tenant.
func (s Scope) Role() Role { return s.role }

// IsZero reports whether the scope is unbound.
func (s Scope) IsZero() bool { return s.tenantID == "" }

// Check returns ErrTenantNotResolved for the zero Scope.
func (s Scope) Check() error {
	if s.IsZero() {
		return domain.ErrTenantNotResolved
	}
	return nil
}
