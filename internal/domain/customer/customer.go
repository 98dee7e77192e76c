// Package customer defines the customer domain model.
package customer

import (
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Customer is an organization the tenant sells to.
type Customer struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	Code      string    `json:"code"` // unique per tenant
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	TaxID     string    `json:"tax_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a customer.
type CreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Code    string `json:"code" validate:"required,max=50"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	City    string `json:"city,omitempty" validate:"max=100"`
	Country string `json:"country,omitempty" validate:"max=100"`
	TaxID   string `json:"tax_id,omitempty" validate:"max=50"`
	Notes   string `json:"notes,omitempty"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error { return domain.Validate(r) }

// UpdateRequest holds the mutable fields of a customer.
type UpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Country *string `json:"country,omitempty"`
	TaxID   *string `json:"tax_id,omitempty"`
	Notes   *string `json:"notes,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error { return domain.Validate(r) }

// Apply copies the set fields onto c.
func (r *UpdateRequest) Apply(c *Customer) {
	domain.Assign(&c.Name, r.Name)
	domain.Assign(&c.Email, r.Email)
	domain.Assign(&c.Phone, r.Phone)
	domain.Assign(&c.Address, r.Address)
	domain.Assign(&c.City, r.City)
	domain.Assign(&c.Country, r.Country)
	domain.Assign(&c.TaxID, r.TaxID)
	domain.Assign(&c.Notes, r.Notes)
	domain.Assign(&c.Active, r.Active)
}
