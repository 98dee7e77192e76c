package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/carrier"
	"github.com/tradeloom/tradeloom/internal/domain/contact"
	"github.com/tradeloom/tradeloom/internal/domain/customer"
	"github.com/tradeloom/tradeloom/internal/domain/plant"
	"github.com/tradeloom/tradeloom/internal/domain/provision"
	"github.com/tradeloom/tradeloom/internal/domain/purchaseorder"
	"github.com/tradeloom/tradeloom/internal/domain/search"
	"github.com/tradeloom/tradeloom/internal/domain/supplier"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/port/database"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// scopedTable holds rows keyed by tenant, then id. Rows of other tenants
// are invisible to a lookup, as in the real store.
type scopedTable[T any] map[string]map[string]T

func (t scopedTable[T]) get(s tenant.Scope, id string) (T, error) {
	var zero T
	if err := s.Check(); err != nil {
		return zero, err
	}
	v, ok := t[s.TenantID()][id]
	if !ok {
		return zero, domain.ErrNotFound
	}
	return v, nil
}

func (t scopedTable[T]) put(s tenant.Scope, id string, v T) {
	if t[s.TenantID()] == nil {
		t[s.TenantID()] = map[string]T{}
	}
	t[s.TenantID()][id] = v
}

func (t scopedTable[T]) list(s tenant.Scope) ([]T, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(t[s.TenantID()]))
	for id := range t[s.TenantID()] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t[s.TenantID()][id])
	}
	return out, nil
}

func (t scopedTable[T]) del(s tenant.Scope, id string) error {
	if _, err := t.get(s, id); err != nil {
		return err
	}
	delete(t[s.TenantID()], id)
	return nil
}

// mockStore is an in-memory implementation of database.Store for testing.
type mockStore struct {
	mu      sync.Mutex
	seq     int
	tenants []tenant.Tenant
	users   []user.User
	members []tenant.Membership
	schema  map[string]int64

	customers scopedTable[customer.Customer]
	suppliers scopedTable[supplier.Supplier]
	contacts  scopedTable[contact.Contact]
	plants    scopedTable[plant.Plant]
	carriers  scopedTable[carrier.Carrier]
	orders    scopedTable[purchaseorder.PurchaseOrder]

	// Call counters.
	tenantGets int

	// Error hooks: set these to inject failures.
	provisionErr   error
	markErr        error
	searchOrderErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		schema:    map[string]int64{},
		customers: scopedTable[customer.Customer]{},
		suppliers: scopedTable[supplier.Supplier]{},
		contacts:  scopedTable[contact.Contact]{},
		plants:    scopedTable[plant.Plant]{},
		carriers:  scopedTable[carrier.Carrier]{},
		orders:    scopedTable[purchaseorder.PurchaseOrder]{},
	}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

// --- Tenants ---

func (m *mockStore) addTenant(t tenant.Tenant) *tenant.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = m.nextID("tenant")
	}
	m.tenants = append(m.tenants, t)
	return &m.tenants[len(m.tenants)-1]
}

func (m *mockStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tenant.Tenant(nil), m.tenants...), nil
}

func (m *mockStore) findTenant(match func(*tenant.Tenant) bool) (*tenant.Tenant, error) {
	m.tenantGets++
	for i := range m.tenants {
		if match(&m.tenants[i]) {
			t := m.tenants[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTenant(func(t *tenant.Tenant) bool { return t.ID == id })
}

func (m *mockStore) GetTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTenant(func(t *tenant.Tenant) bool { return t.Slug == slug })
}

func (m *mockStore) GetTenantByDomain(_ context.Context, d string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTenant(func(t *tenant.Tenant) bool { return t.Domain != "" && t.Domain == d })
}

func (m *mockStore) createTenant(req tenant.CreateRequest) (*tenant.Tenant, bool) {
	for i := range m.tenants {
		if m.tenants[i].Slug == req.Slug {
			t := m.tenants[i]
			return &t, false
		}
	}
	t := tenant.Tenant{
		ID:      m.nextID("tenant"),
		Name:    req.Name,
		Slug:    req.Slug,
		Domain:  req.Domain,
		Enabled: true,
		Trial:   req.Trial,
	}
	m.tenants = append(m.tenants, t)
	return &t, true
}

func (m *mockStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, created := m.createTenant(req)
	return t, created, nil
}

func (m *mockStore) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tenants {
		if m.tenants[i].ID == t.ID {
			m.tenants[i] = *t
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) MarkTenantSchema(_ context.Context, id string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.schema[id] = version
	return nil
}

func (m *mockStore) MarkAllTenantSchemas(_ context.Context, version int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return 0, m.markErr
	}
	var n int64
	for _, t := range m.tenants {
		if m.schema[t.ID] != version {
			m.schema[t.ID] = version
			n++
		}
	}
	return n, nil
}

func (m *mockStore) UnmarkedTenants(_ context.Context, version int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, t := range m.tenants {
		if m.schema[t.ID] != version {
			out = append(out, t.ID)
		}
	}
	return out, nil
}

// --- Users and memberships ---

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == email {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) createUser(u *user.User) (*user.User, bool) {
	u.Email = strings.ToLower(u.Email)
	for i := range m.users {
		if m.users[i].Email == u.Email {
			existing := m.users[i]
			return &existing, false
		}
	}
	if u.ID == "" {
		u.ID = m.nextID("user")
	}
	m.users = append(m.users, *u)
	created := *u
	return &created, true
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) (*user.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	got, created := m.createUser(u)
	return got, created, nil
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]user.User(nil), m.users...), nil
}

func (m *mockStore) ListMemberships(_ context.Context, userID string) ([]tenant.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tenant.Membership
	for _, ms := range m.members {
		if ms.UserID == userID {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *mockStore) ListTenantMembers(_ context.Context, tenantID string) ([]tenant.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tenant.Membership
	for _, ms := range m.members {
		if ms.TenantID == tenantID {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *mockStore) GetMembership(_ context.Context, tenantID, userID string) (*tenant.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ms := range m.members {
		if ms.TenantID == tenantID && ms.UserID == userID {
			return &ms, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) addMembership(ms tenant.Membership) bool {
	for _, existing := range m.members {
		if existing.TenantID == ms.TenantID && existing.UserID == ms.UserID {
			return false
		}
	}
	ms.Active = true
	ms.CreatedAt = time.Now()
	m.members = append(m.members, ms)
	return true
}

func (m *mockStore) AddMembership(_ context.Context, ms tenant.Membership) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addMembership(ms), nil
}

func (m *mockStore) ProvisionTenant(_ context.Context, req tenant.CreateRequest, owner *user.User, role tenant.Role) (*tenant.Tenant, provision.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.provisionErr != nil {
		return nil, provision.OutcomeFailed, m.provisionErr
	}
	if owner != nil {
		for i := range m.users {
			if strings.EqualFold(m.users[i].Email, owner.Email) {
				if err := user.CheckOwner(owner, &m.users[i]); err != nil {
					return nil, provision.OutcomeFailed, err
				}
			}
		}
	}
	t, created := m.createTenant(req)
	if owner != nil {
		u, _ := m.createUser(owner)
		m.addMembership(tenant.Membership{TenantID: t.ID, UserID: u.ID, Role: role})
		*owner = *u
	}
	if created {
		return t, provision.OutcomeCreated, nil
	}
	return t, provision.OutcomeAlreadyExists, nil
}

// --- Entities ---

func (m *mockStore) ListCustomers(_ context.Context, s tenant.Scope) ([]customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.customers.list(s)
}

func (m *mockStore) GetCustomer(_ context.Context, s tenant.Scope, id string) (*customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.customers.get(s, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *mockStore) CreateCustomer(_ context.Context, s tenant.Scope, req customer.CreateRequest) (*customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := s.Check(); err != nil {
		return nil, err
	}
	c := customer.Customer{ID: m.nextID("cust"), TenantID: s.TenantID(), Name: req.Name, Code: req.Code, Email: req.Email, Active: true}
	m.customers.put(s, c.ID, c)
	return &c, nil
}

func (m *mockStore) UpdateCustomer(_ context.Context, s tenant.Scope, c *customer.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.customers.get(s, c.ID); err != nil {
		return err
	}
	m.customers.put(s, c.ID, *c)
	return nil
}

func (m *mockStore) DeleteCustomer(_ context.Context, s tenant.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.customers.del(s, id)
}

func (m *mockStore) ListSuppliers(_ context.Context, s tenant.Scope) ([]supplier.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppliers.list(s)
}

func (m *mockStore) GetSupplier(_ context.Context, s tenant.Scope, id string) (*supplier.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, err := m.suppliers.get(s, id)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (m *mockStore) CreateSupplier(_ context.Context, s tenant.Scope, req supplier.CreateRequest) (*supplier.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := s.Check(); err != nil {
		return nil, err
	}
	sp := supplier.Supplier{ID: m.nextID("sup"), TenantID: s.TenantID(), Name: req.Name, Code: req.Code, Active: true}
	m.suppliers.put(s, sp.ID, sp)
	return &sp, nil
}

func (m *mockStore) UpdateSupplier(_ context.Context, s tenant.Scope, sp *supplier.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.suppliers.get(s, sp.ID); err != nil {
		return err
	}
	m.suppliers.put(s, sp.ID, *sp)
	return nil
}

func (m *mockStore) DeleteSupplier(_ context.Context, s tenant.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppliers.del(s, id)
}

func (m *mockStore) ListContacts(_ context.Context, s tenant.Scope) ([]contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts.list(s)
}

func (m *mockStore) GetContact(_ context.Context, s tenant.Scope, id string) (*contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.contacts.get(s, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *mockStore) CreateContact(_ context.Context, s tenant.Scope, req contact.CreateRequest) (*contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := s.Check(); err != nil {
		return nil, err
	}
	c := contact.Contact{
		ID: m.nextID("contact"), TenantID: s.TenantID(),
		FirstName: req.FirstName, LastName: req.LastName,
		CustomerID: req.CustomerID, SupplierID: req.SupplierID,
	}
	m.contacts.put(s, c.ID, c)
	return &c, nil
}

func (m *mockStore) UpdateContact(_ context.Context, s tenant.Scope, c *contact.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.contacts.get(s, c.ID); err != nil {
		return err
	}
	m.contacts.put(s, c.ID, *c)
	return nil
}

func (m *mockStore) DeleteContact(_ context.Context, s tenant.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts.del(s, id)
}

func (m *mockStore) ListPlants(_ context.Context, s tenant.Scope) ([]plant.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plants.list(s)
}

func (m *mockStore) GetPlant(_ context.Context, s tenant.Scope, id string) (*plant.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.plants.get(s, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *mockStore) CreatePlant(_ context.Context, s tenant.Scope, req plant.CreateRequest) (*plant.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := s.Check(); err != nil {
		return nil, err
	}
	p := plant.Plant{ID: m.nextID("plant"), TenantID: s.TenantID(), Name: req.Name, Code: req.Code, Active: true}
	m.plants.put(s, p.ID, p)
	return &p, nil
}

func (m *mockStore) UpdatePlant(_ context.Context, s tenant.Scope, p *plant.Plant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.plants.get(s, p.ID); err != nil {
		return err
	}
	m.plants.put(s, p.ID, *p)
	return nil
}

func (m *mockStore) DeletePlant(_ context.Context, s tenant.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plants.del(s, id)
}

func (m *mockStore) ListCarriers(_ context.Context, s tenant.Scope) ([]carrier.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carriers.list(s)
}

func (m *mockStore) GetCarrier(_ context.Context, s tenant.Scope, id string) (*carrier.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.carriers.get(s, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *mockStore) CreateCarrier(_ context.Context, s tenant.Scope, req carrier.CreateRequest) (*carrier.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := s.Check(); err != nil {
		return nil, err
	}
	c := carrier.Carrier{ID: m.nextID("carrier"), TenantID: s.TenantID(), Name: req.Name, Mode: req.Mode, Active: true}
	m.carriers.put(s, c.ID, c)
	return &c, nil
}

func (m *mockStore) UpdateCarrier(_ context.Context, s tenant.Scope, c *carrier.Carrier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.carriers.get(s, c.ID); err != nil {
		return err
	}
	m.carriers.put(s, c.ID, *c)
	return nil
}

func (m *mockStore) DeleteCarrier(_ context.Context, s tenant.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carriers.del(s, id)
}

func (m *mockStore) ListPurchaseOrders(_ context.Context, s tenant.Scope) ([]purchaseorder.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders.list(s)
}

func (m *mockStore) GetPurchaseOrder(_ context.Context, s tenant.Scope, id string) (*purchaseorder.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.orders.get(s, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *mockStore) CreatePurchaseOrder(_ context.Context, s tenant.Scope, o *purchaseorder.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := s.Check(); err != nil {
		return err
	}
	o.ID = m.nextID("po")
	o.TenantID = s.TenantID()
	m.orders.put(s, o.ID, *o)
	return nil
}

func (m *mockStore) UpdatePurchaseOrder(_ context.Context, s tenant.Scope, o *purchaseorder.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.orders.get(s, o.ID); err != nil {
		return err
	}
	m.orders.put(s, o.ID, *o)
	return nil
}

func (m *mockStore) DeletePurchaseOrder(_ context.Context, s tenant.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders.del(s, id)
}

// --- Search ---

func matches(q search.Query, fields ...string) bool {
	needle := strings.ToLower(q.Text)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (m *mockStore) SearchCustomers(_ context.Context, s tenant.Scope, q search.Query) ([]search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.customers.list(s)
	if err != nil {
		return nil, err
	}
	var out []search.Result
	for _, c := range rows {
		if matches(q, c.Name, c.Code) && len(out) < q.Limit {
			out = append(out, search.Result{Type: search.TypeCustomer, ID: c.ID, Title: c.Name, URL: "/customers/" + c.ID})
		}
	}
	return out, nil
}

func (m *mockStore) SearchSuppliers(_ context.Context, s tenant.Scope, q search.Query) ([]search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.suppliers.list(s)
	if err != nil {
		return nil, err
	}
	var out []search.Result
	for _, sp := range rows {
		if matches(q, sp.Name, sp.Code) && len(out) < q.Limit {
			out = append(out, search.Result{Type: search.TypeSupplier, ID: sp.ID, Title: sp.Name, URL: "/suppliers/" + sp.ID})
		}
	}
	return out, nil
}

func (m *mockStore) SearchPurchaseOrders(_ context.Context, s tenant.Scope, q search.Query) ([]search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchOrderErr != nil {
		return nil, m.searchOrderErr
	}
	rows, err := m.orders.list(s)
	if err != nil {
		return nil, err
	}
	var out []search.Result
	for _, o := range rows {
		if matches(q, o.Number, o.Notes) && len(out) < q.Limit {
			out = append(out, search.Result{Type: search.TypeOrder, ID: o.ID, Title: o.Number, URL: "/purchase-orders/" + o.ID})
		}
	}
	return out, nil
}
