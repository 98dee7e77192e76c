// Package purchaseorder defines the purchase order domain model.
package purchaseorder

import (
	"fmt"
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusReceived},
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"-"`
	Number       string     `json:"number"` // unique per tenant
	SupplierID   string     `json:"supplier_id"`
	CustomerID   *string    `json:"customer_id,omitempty"`
	PlantID      *string    `json:"plant_id,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	Status       Status     `json:"status"`
	OrderDate    time.Time  `json:"order_date"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	Currency     string     `json:"currency"`
	TotalCents   int64      `json:"total_cents"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// References returns the ids of the entities the order points at, keyed by
// entity kind. Optional references that are unset are omitted.
func (o *PurchaseOrder) References() map[string]string {
	refs := map[string]string{"supplier": o.SupplierID}
	if o.CustomerID != nil {
		refs["customer"] = *o.CustomerID
	}
	if o.PlantID != nil {
		refs["plant"] = *o.PlantID
	}
	if o.CarrierID != nil {
		refs["carrier"] = *o.CarrierID
	}
	return refs
}

// CreateRequest holds the fields required to create a purchase order.
type CreateRequest struct {
	Number       string     `json:"number" validate:"required,max=50"`
	SupplierID   string     `json:"supplier_id" validate:"required"`
	CustomerID   *string    `json:"customer_id,omitempty"`
	PlantID      *string    `json:"plant_id,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	OrderDate    *time.Time `json:"order_date,omitempty"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	Currency     string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	TotalCents   int64      `json:"total_cents" validate:"gte=0"`
	Notes        string     `json:"notes,omitempty"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error { return domain.Validate(r) }

// Build returns a draft order populated from the request.
func (r *CreateRequest) Build(now time.Time) *PurchaseOrder {
	o := &PurchaseOrder{
		Number:       r.Number,
		SupplierID:   r.SupplierID,
		CustomerID:   r.CustomerID,
		PlantID:      r.PlantID,
		CarrierID:    r.CarrierID,
		Status:       StatusDraft,
		OrderDate:    now.UTC().Truncate(24 * time.Hour),
		ExpectedDate: r.ExpectedDate,
		Currency:     r.Currency,
		TotalCents:   r.TotalCents,
		Notes:        r.Notes,
	}
	if r.OrderDate != nil {
		o.OrderDate = *r.OrderDate
	}
	if o.Currency == "" {
		o.Currency = "EUR"
	}
	return o
}

// UpdateRequest holds the mutable fields of a purchase order.
type UpdateRequest struct {
	Status       *Status    `json:"status,omitempty" validate:"omitempty,oneof=draft submitted confirmed shipped received cancelled"`
	CustomerID   *string    `json:"customer_id,omitempty"`
	PlantID      *string    `json:"plant_id,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	TotalCents   *int64     `json:"total_cents,omitempty" validate:"omitempty,gte=0"`
	Notes        *string    `json:"notes,omitempty"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error { return domain.Validate(r) }

// Apply copies the set fields onto o, rejecting invalid status transitions.
func (r *UpdateRequest) Apply(o *PurchaseOrder) error {
	if r.Status != nil && !o.Status.CanTransition(*r.Status) {
		return fmt.Errorf("%w: cannot move order from %s to %s", domain.ErrValidation, o.Status, *r.Status)
	}
	domain.Assign(&o.Status, r.Status)
	if r.CustomerID != nil {
		o.CustomerID = r.CustomerID
	}
	if r.PlantID != nil {
		o.PlantID = r.PlantID
	}
	if r.CarrierID != nil {
		o.CarrierID = r.CarrierID
	}
	if r.ExpectedDate != nil {
		o.ExpectedDate = r.ExpectedDate
	}
	domain.Assign(&o.TotalCents, r.TotalCents)
	domain.Assign(&o.Notes, r.Notes)
	return nil
}
