package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/carrier"
	"github.com/tradeloom/tradeloom/internal/domain/contact"
	"github.com/tradeloom/tradeloom/internal/domain/customer"
	"github.com/tradeloom/tradeloom/internal/domain/plant"
	"github.com/tradeloom/tradeloom/internal/domain/purchaseorder"
	"github.com/tradeloom/tradeloom/internal/domain/supplier"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/port/database"
)

// Entities exposes scoped CRUD for one business entity type T with create
// request C and update request U. Every method requires a resolved scope.
type Entities[T, C, U any] struct {
	kind   string
	list   func(context.Context, tenant.Scope) ([]T, error)
	get    func(context.Context, tenant.Scope, string) (*T, error)
	create func(context.Context, tenant.Scope, *C) (*T, error)
	update func(context.Context, tenant.Scope, *T) error
	remove func(context.Context, tenant.Scope, string) error
	// check validates a create request inside the scope.
	check func(context.Context, tenant.Scope, *C) error
	// patch validates u and applies it onto the loaded entity.
	patch func(context.Context, tenant.Scope, *U, *T) error
}

// Kind names the entity type for logs and errors.
func (e *Entities[T, C, U]) Kind() string { return e.kind }

// List returns every entity in the scope.
func (e *Entities[T, C, U]) List(ctx context.Context, s tenant.Scope) ([]T, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	return e.list(ctx, s)
}

// Get returns one entity. An id owned by another tenant is not found.
func (e *Entities[T, C, U]) Get(ctx context.Context, s tenant.Scope, id string) (*T, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	return e.get(ctx, s, id)
}

// Create validates req and inserts the entity under the scope's tenant.
func (e *Entities[T, C, U]) Create(ctx context.Context, s tenant.Scope, req *C) (*T, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	if err := e.check(ctx, s, req); err != nil {
		return nil, err
	}
	return e.create(ctx, s, req)
}

// Update loads the entity, applies req and stores it.
func (e *Entities[T, C, U]) Update(ctx context.Context, s tenant.Scope, id string, req *U) (*T, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	v, err := e.get(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if err := e.patch(ctx, s, req, v); err != nil {
		return nil, err
	}
	if err := e.update(ctx, s, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the entity.
func (e *Entities[T, C, U]) Delete(ctx context.Context, s tenant.Scope, id string) error {
	if err := s.Check(); err != nil {
		return err
	}
	return e.remove(ctx, s, id)
}

type (
	CustomerService      = Entities[customer.Customer, customer.CreateRequest, customer.UpdateRequest]
	SupplierService      = Entities[supplier.Supplier, supplier.CreateRequest, supplier.UpdateRequest]
	ContactService       = Entities[contact.Contact, contact.CreateRequest, contact.UpdateRequest]
	PlantService         = Entities[plant.Plant, plant.CreateRequest, plant.UpdateRequest]
	CarrierService       = Entities[carrier.Carrier, carrier.CreateRequest, carrier.UpdateRequest]
	PurchaseOrderService = Entities[purchaseorder.PurchaseOrder, purchaseorder.CreateRequest, purchaseorder.UpdateRequest]
)

// validateOnly adapts a request's Validate method to a check func.
func validateOnly[C any](validate func(*C) error) func(context.Context, tenant.Scope, *C) error {
	return func(_ context.Context, _ tenant.Scope, req *C) error { return validate(req) }
}

// NewCustomerService creates the customer service.
func NewCustomerService(store database.EntityStore) *CustomerService {
	return &CustomerService{
		kind:   "customer",
		list:   store.ListCustomers,
		get:    store.GetCustomer,
		update: store.UpdateCustomer,
		remove: store.DeleteCustomer,
		check:  validateOnly((*customer.CreateRequest).Validate),
		create: func(ctx context.Context, s tenant.Scope, r *customer.CreateRequest) (*customer.Customer, error) {
			return store.CreateCustomer(ctx, s, *r)
		},
		patch: func(_ context.Context, _ tenant.Scope, u *customer.UpdateRequest, c *customer.Customer) error {
			if err := u.Validate(); err != nil {
				return err
			}
			u.Apply(c)
			return nil
		},
	}
}

// NewSupplierService creates the supplier service.
func NewSupplierService(store database.EntityStore) *SupplierService {
	return &SupplierService{
		kind:   "supplier",
		list:   store.ListSuppliers,
		get:    store.GetSupplier,
		update: store.UpdateSupplier,
		remove: store.DeleteSupplier,
		check:  validateOnly((*supplier.CreateRequest).Validate),
		create: func(ctx context.Context, s tenant.Scope, r *supplier.CreateRequest) (*supplier.Supplier, error) {
			return store.CreateSupplier(ctx, s, *r)
		},
		patch: func(_ context.Context, _ tenant.Scope, u *supplier.UpdateRequest, sp *supplier.Supplier) error {
			if err := u.Validate(); err != nil {
				return err
			}
			u.Apply(sp)
			return nil
		},
	}
}

// NewContactService creates the contact service. The organization a
// contact belongs to must exist in the same tenant.
func NewContactService(store database.EntityStore) *ContactService {
	return &ContactService{
		kind:   "contact",
		list:   store.ListContacts,
		get:    store.GetContact,
		update: store.UpdateContact,
		remove: store.DeleteContact,
		check: func(ctx context.Context, s tenant.Scope, r *contact.CreateRequest) error {
			if err := r.Validate(); err != nil {
				return err
			}
			if r.CustomerID != nil {
				if _, err := store.GetCustomer(ctx, s, *r.CustomerID); err != nil {
					return fmt.Errorf("customer %s: %w", *r.CustomerID, err)
				}
			}
			if r.SupplierID != nil {
				if _, err := store.GetSupplier(ctx, s, *r.SupplierID); err != nil {
					return fmt.Errorf("supplier %s: %w", *r.SupplierID, err)
				}
			}
			return nil
		},
		create: func(ctx context.Context, s tenant.Scope, r *contact.CreateRequest) (*contact.Contact, error) {
			return store.CreateContact(ctx, s, *r)
		},
		patch: func(_ context.Context, _ tenant.Scope, u *contact.UpdateRequest, c *contact.Contact) error {
			if err := u.Validate(); err != nil {
				return err
			}
			u.Apply(c)
			return nil
		},
	}
}

// NewPlantService creates the plant service.
func NewPlantService(store database.EntityStore) *PlantService {
	return &PlantService{
		kind:   "plant",
		list:   store.ListPlants,
		get:    store.GetPlant,
		update: store.UpdatePlant,
		remove: store.DeletePlant,
		check:  validateOnly((*plant.CreateRequest).Validate),
		create: func(ctx context.Context, s tenant.Scope, r *plant.CreateRequest) (*plant.Plant, error) {
			return store.CreatePlant(ctx, s, *r)
		},
		patch: func(_ context.Context, _ tenant.Scope, u *plant.UpdateRequest, p *plant.Plant) error {
			if err := u.Validate(); err != nil {
				return err
			}
			u.Apply(p)
			return nil
		},
	}
}

// NewCarrierService creates the carrier service.
func NewCarrierService(store database.EntityStore) *CarrierService {
	return &CarrierService{
		kind:   "carrier",
		list:   store.ListCarriers,
		get:    store.GetCarrier,
		update: store.UpdateCarrier,
		remove: store.DeleteCarrier,
		check:  validateOnly((*carrier.CreateRequest).Validate),
		create: func(ctx context.Context, s tenant.Scope, r *carrier.CreateRequest) (*carrier.Carrier, error) {
			return store.CreateCarrier(ctx, s, *r)
		},
		patch: func(_ context.Context, _ tenant.Scope, u *carrier.UpdateRequest, c *carrier.Carrier) error {
			if err := u.Validate(); err != nil {
				return err
			}
			u.Apply(c)
			return nil
		},
	}
}

// NewPurchaseOrderService creates the purchase order service. Every
// referenced supplier, customer, plant and carrier must exist in the scope.
func NewPurchaseOrderService(store database.EntityStore, now func() time.Time) *PurchaseOrderService {
	if now == nil {
		now = time.Now
	}
	refs := func(ctx context.Context, s tenant.Scope, o *purchaseorder.PurchaseOrder) error {
		return checkOrderReferences(ctx, store, s, o)
	}
	return &PurchaseOrderService{
		kind:   "purchase order",
		list:   store.ListPurchaseOrders,
		get:    store.GetPurchaseOrder,
		update: store.UpdatePurchaseOrder,
		remove: store.DeletePurchaseOrder,
		check: func(ctx context.Context, s tenant.Scope, r *purchaseorder.CreateRequest) error {
			if err := r.Validate(); err != nil {
				return err
			}
			return refs(ctx, s, r.Build(now()))
		},
		create: func(ctx context.Context, s tenant.Scope, r *purchaseorder.CreateRequest) (*purchaseorder.PurchaseOrder, error) {
			o := r.Build(now())
			if err := store.CreatePurchaseOrder(ctx, s, o); err != nil {
				return nil, err
			}
			return o, nil
		},
		patch: func(ctx context.Context, s tenant.Scope, u *purchaseorder.UpdateRequest, o *purchaseorder.PurchaseOrder) error {
			if err := u.Validate(); err != nil {
				return err
			}
			if err := u.Apply(o); err != nil {
				return err
			}
			return refs(ctx, s, o)
		},
	}
}

func checkOrderReferences(ctx context.Context, store database.EntityStore, s tenant.Scope, o *purchaseorder.PurchaseOrder) error {
	for kind, id := range o.References() {
		var err error
		switch kind {
		case "supplier":
			_, err = store.GetSupplier(ctx, s, id)
		case "customer":
			_, err = store.GetCustomer(ctx, s, id)
		case "plant":
			_, err = store.GetPlant(ctx, s, id)
		case "carrier":
			_, err = store.GetCarrier(ctx, s, id)
		default:
			err = fmt.Errorf("%w: unknown reference %s", domain.ErrValidation, kind)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, id, err)
		}
	}
	return nil
}
