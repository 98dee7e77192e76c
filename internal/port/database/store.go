// Package database defines the database store port (interface).
//
// Shared-schema operations (tenants, users, memberships) are unscoped.
// Every business-entity operation takes an explicit tenant.Scope; adapters
// must filter and stamp rows with scope.TenantID() and treat rows owned by
// another tenant as missing.
package database

import (
	"context"

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
)

// TenantStore is the shared tenant registry.
type TenantStore interface {
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, error)
	// CreateTenant inserts a tenant. created is false when a tenant with the
	// same slug already existed; the existing row is returned unchanged.
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (t *tenant.Tenant, created bool, err error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
	// MarkTenantSchema records that the tenant schema at version applies to id.
	MarkTenantSchema(ctx context.Context, id string, version int64) error
	// MarkAllTenantSchemas records version for every tenant and returns the
	// number of tenants whose recorded version changed.
	MarkAllTenantSchemas(ctx context.Context, version int64) (int64, error)
	// UnmarkedTenants returns ids of tenants whose recorded schema version
	// differs from version.
	UnmarkedTenants(ctx context.Context, version int64) ([]string, error)
}

// UserStore holds users and their tenant memberships.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	// CreateUser inserts a user with an already hashed password. created is
	// false when the email was taken; the existing row is returned unchanged.
	CreateUser(ctx context.Context, u *user.User) (existing *user.User, created bool, err error)
	ListUsers(ctx context.Context) ([]user.User, error)

	ListMemberships(ctx context.Context, userID string) ([]tenant.Membership, error)
	ListTenantMembers(ctx context.Context, tenantID string) ([]tenant.Membership, error)
	GetMembership(ctx context.Context, tenantID, userID string) (*tenant.Membership, error)
	// AddMembership is a no-op returning created=false when it exists.
	AddMembership(ctx context.Context, m tenant.Membership) (created bool, err error)
}

// ProvisionStore runs tenant bootstrap steps atomically.
type ProvisionStore interface {
	// ProvisionTenant creates the tenant, the owner user and the owner's
	// membership in one transaction. Existing rows are kept as they are.
	ProvisionTenant(ctx context.Context, req tenant.CreateRequest, owner *user.User, role tenant.Role) (*tenant.Tenant, provision.Outcome, error)
}

// EntityStore holds the tenant-scoped business entities.
type EntityStore interface {
	ListCustomers(ctx context.Context, s tenant.Scope) ([]customer.Customer, error)
	GetCustomer(ctx context.Context, s tenant.Scope, id string) (*customer.Customer, error)
	CreateCustomer(ctx context.Context, s tenant.Scope, req customer.CreateRequest) (*customer.Customer, error)
	UpdateCustomer(ctx context.Context, s tenant.Scope, c *customer.Customer) error
	DeleteCustomer(ctx context.Context, s tenant.Scope, id string) error

	ListSuppliers(ctx context.Context, s tenant.Scope) ([]supplier.Supplier, error)
	GetSupplier(ctx context.Context, s tenant.Scope, id string) (*supplier.Supplier, error)
	CreateSupplier(ctx context.Context, s tenant.Scope, req supplier.CreateRequest) (*supplier.Supplier, error)
	UpdateSupplier(ctx context.Context, s tenant.Scope, sp *supplier.Supplier) error
	DeleteSupplier(ctx context.Context, s tenant.Scope, id string) error

	ListContacts(ctx context.Context, s tenant.Scope) ([]contact.Contact, error)
	GetContact(ctx context.Context, s tenant.Scope, id string) (*contact.Contact, error)
	CreateContact(ctx context.Context, s tenant.Scope, req contact.CreateRequest) (*contact.Contact, error)
	UpdateContact(ctx context.Context, s tenant.Scope, c *contact.Contact) error
	DeleteContact(ctx context.Context, s tenant.Scope, id string) error

	ListPlants(ctx context.Context, s tenant.Scope) ([]plant.Plant, error)
	GetPlant(ctx context.Context, s tenant.Scope, id string) (*plant.Plant, error)
	CreatePlant(ctx context.Context, s tenant.Scope, req plant.CreateRequest) (*plant.Plant, error)
	UpdatePlant(ctx context.Context, s tenant.Scope, p *plant.Plant) error
	DeletePlant(ctx context.Context, s tenant.Scope, id string) error

	ListCarriers(ctx context.Context, s tenant.Scope) ([]carrier.Carrier, error)
	GetCarrier(ctx context.Context, s tenant.Scope, id string) (*carrier.Carrier, error)
	CreateCarrier(ctx context.Context, s tenant.Scope, req carrier.CreateRequest) (*carrier.Carrier, error)
	UpdateCarrier(ctx context.Context, s tenant.Scope, c *carrier.Carrier) error
	DeleteCarrier(ctx context.Context, s tenant.Scope, id string) error

	ListPurchaseOrders(ctx context.Context, s tenant.Scope) ([]purchaseorder.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, s tenant.Scope, id string) (*purchaseorder.PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, s tenant.Scope, o *purchaseorder.PurchaseOrder) error
	UpdatePurchaseOrder(ctx context.Context, s tenant.Scope, o *purchaseorder.PurchaseOrder) error
	DeletePurchaseOrder(ctx context.Context, s tenant.Scope, id string) error
}

// SearchStore runs one scoped search per entity type.
type SearchStore interface {
	SearchCustomers(ctx context.Context, s tenant.Scope, q search.Query) ([]search.Result, error)
	SearchSuppliers(ctx context.Context, s tenant.Scope, q search.Query) ([]search.Result, error)
	SearchPurchaseOrders(ctx context.Context, s tenant.Scope, q search.Query) ([]search.Result, error)
}

// Store is the port interface for database operations.
type Store interface {
	TenantStore
	UserStore
	ProvisionStore
	EntityStore
	SearchStore
}
