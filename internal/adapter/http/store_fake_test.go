package http_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/customer"
	"github.com/tradeloom/tradeloom/internal/domain/search"
	"github.com/tradeloom/tradeloom/internal/domain/supplier"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/port/database"
)

var errNotFound = fmt.Errorf("fake: %w", domain.ErrNotFound)

// fakeStore keeps tenants, users, memberships, customers and suppliers in
// memory. Methods the handler tests never reach fall through to the nil
// embedded interface and panic.
type fakeStore struct {
	database.Store

	mu          sync.Mutex
	tenants     map[string]*tenant.Tenant
	users       map[string]*user.User
	memberships []tenant.Membership
	customers   map[string]*customer.Customer
	suppliers   map[string]*supplier.Supplier
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:   make(map[string]*tenant.Tenant),
		users:     make(map[string]*user.User),
		customers: make(map[string]*customer.Customer),
		suppliers: make(map[string]*supplier.Supplier),
	}
}

func (s *fakeStore) addTenant(slug, domainName string) *tenant.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &tenant.Tenant{ID: uuid.NewString(), Name: strings.ToUpper(slug), Slug: slug, Domain: domainName, Enabled: true}
	s.tenants[t.ID] = t
	return t
}

func (s *fakeStore) addMembership(tenantID, userID string, role tenant.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, tenant.Membership{TenantID: tenantID, UserID: userID, Role: role, Active: true})
}

// --- tenants ---

func (s *fakeStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	return s.findTenant(func(t *tenant.Tenant) bool { return t.ID == id })
}

func (s *fakeStore) GetTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	return s.findTenant(func(t *tenant.Tenant) bool { return t.Slug == slug })
}

func (s *fakeStore) GetTenantByDomain(_ context.Context, d string) (*tenant.Tenant, error) {
	return s.findTenant(func(t *tenant.Tenant) bool { return t.Domain != "" && t.Domain == d })
}

func (s *fakeStore) findTenant(match func(*tenant.Tenant) bool) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (s *fakeStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.Slug == req.Slug {
			cp := *t
			return &cp, false, nil
		}
	}
	t := &tenant.Tenant{ID: uuid.NewString(), Name: req.Name, Slug: req.Slug, Domain: req.Domain, Enabled: true, CreatedAt: time.Now()}
	s.tenants[t.ID] = t
	cp := *t
	return &cp, true, nil
}

func (s *fakeStore) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; !ok {
		return errNotFound
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *fakeStore) MarkTenantSchema(context.Context, string, int64) error { return nil }

// --- users ---

func (s *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errNotFound
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (s *fakeStore) CreateUser(_ context.Context, u *user.User) (*user.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return u, true, nil
}

func (s *fakeStore) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *fakeStore) ListMemberships(_ context.Context, userID string) ([]tenant.Membership, error) {
	return s.filterMemberships(func(m tenant.Membership) bool { return m.UserID == userID }), nil
}

func (s *fakeStore) ListTenantMembers(_ context.Context, tenantID string) ([]tenant.Membership, error) {
	return s.filterMemberships(func(m tenant.Membership) bool { return m.TenantID == tenantID }), nil
}

func (s *fakeStore) filterMemberships(match func(tenant.Membership) bool) []tenant.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenant.Membership
	for _, m := range s.memberships {
		if match(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *fakeStore) GetMembership(_ context.Context, tenantID, userID string) (*tenant.Membership, error) {
	ms := s.filterMemberships(func(m tenant.Membership) bool { return m.TenantID == tenantID && m.UserID == userID })
	if len(ms) == 0 {
		return nil, errNotFound
	}
	return &ms[0], nil
}

func (s *fakeStore) AddMembership(ctx context.Context, m tenant.Membership) (bool, error) {
	if _, err := s.GetMembership(ctx, m.TenantID, m.UserID); err == nil {
		return false, nil
	}
	m.Active = true
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, m)
	return true, nil
}

// --- customers (scoped) ---

func (s *fakeStore) ListCustomers(_ context.Context, sc tenant.Scope) ([]customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []customer.Customer
	for _, c := range s.customers {
		if c.TenantID == sc.TenantID() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) GetCustomer(_ context.Context, sc tenant.Scope, id string) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok || c.TenantID != sc.TenantID() {
		return nil, errNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) CreateCustomer(_ context.Context, sc tenant.Scope, req customer.CreateRequest) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.TenantID == sc.TenantID() && c.Code == req.Code {
			return nil, fmt.Errorf("create customer: %w", domain.ErrConflict)
		}
	}
	c := &customer.Customer{
		ID: uuid.NewString(), TenantID: sc.TenantID(), Name: req.Name, Code: req.Code,
		Email: req.Email, Active: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.customers[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *fakeStore) UpdateCustomer(_ context.Context, sc tenant.Scope, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.customers[c.ID]
	if !ok || existing.TenantID != sc.TenantID() {
		return errNotFound
	}
	cp := *c
	cp.TenantID = sc.TenantID()
	s.customers[c.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteCustomer(_ context.Context, sc tenant.Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok || c.TenantID != sc.TenantID() {
		return errNotFound
	}
	delete(s.customers, id)
	return nil
}

func (s *fakeStore) CreateSupplier(_ context.Context, sc tenant.Scope, req supplier.CreateRequest) (*supplier.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := &supplier.Supplier{ID: uuid.NewString(), TenantID: sc.TenantID(), Name: req.Name, Code: req.Code, Active: true}
	s.suppliers[sp.ID] = sp
	cp := *sp
	return &cp, nil
}

// --- search ---

func (s *fakeStore) SearchCustomers(_ context.Context, sc tenant.Scope, q search.Query) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []search.Result
	for _, c := range s.customers {
		if c.TenantID == sc.TenantID() && strings.Contains(strings.ToLower(c.Name), strings.ToLower(q.Text)) {
			out = append(out, search.Result{Type: search.TypeCustomer, ID: c.ID, Title: c.Name, URL: "/customers/" + c.ID})
		}
	}
	return out, nil
}

func (s *fakeStore) SearchSuppliers(_ context.Context, sc tenant.Scope, q search.Query) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []search.Result
	for _, sp := range s.suppliers {
		if sp.TenantID == sc.TenantID() && strings.Contains(strings.ToLower(sp.Name), strings.ToLower(q.Text)) {
			out = append(out, search.Result{Type: search.TypeSupplier, ID: sp.ID, Title: sp.Name, URL: "/suppliers/" + sp.ID})
		}
	}
	return out, nil
}

func (s *fakeStore) SearchPurchaseOrders(context.Context, tenant.Scope, search.Query) ([]search.Result, error) {
	return nil, nil
}
