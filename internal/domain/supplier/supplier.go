// Package supplier defines the supplier domain model.
package supplier

import (
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Supplier is an organization the tenant buys from.
type Supplier struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"-"`
	Name         string    `json:"name"`
	Code         string    `json:"code"` // unique per tenant
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	Country      string    `json:"country,omitempty"`
	TaxID        string    `json:"tax_id,omitempty"`
	PaymentTerms string    `json:"payment_terms,omitempty"`
	Rating       int       `json:"rating"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a supplier.
type CreateRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Code         string `json:"code" validate:"required,max=50"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string `json:"phone,omitempty" validate:"max=50"`
	Address      string `json:"address,omitempty" validate:"max=500"`
	City         string `json:"city,omitempty" validate:"max=100"`
	Country      string `json:"country,omitempty" validate:"max=100"`
	TaxID        string `json:"tax_id,omitempty" validate:"max=50"`
	PaymentTerms string `json:"payment_terms,omitempty" validate:"max=100"`
	Rating       int    `json:"rating,omitempty" validate:"gte=0,lte=5"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error { return domain.Validate(r) }

// UpdateRequest holds the mutable fields of a supplier.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	City         *string `json:"city,omitempty"`
	Country      *string `json:"country,omitempty"`
	TaxID        *string `json:"tax_id,omitempty"`
	PaymentTerms *string `json:"payment_terms,omitempty"`
	Rating       *int    `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Active       *bool   `json:"active,omitempty"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error { return domain.Validate(r) }

// Apply copies the set fields onto s.
func (r *UpdateRequest) Apply(s *Supplier) {
	domain.Assign(&s.Name, r.Name)
	domain.Assign(&s.Email, r.Email)
	domain.Assign(&s.Phone, r.Phone)
	domain.Assign(&s.Address, r.Address)
	domain.Assign(&s.City, r.City)
	domain.Assign(&s.Country, r.Country)
	domain.Assign(&s.TaxID, r.TaxID)
	domain.Assign(&s.PaymentTerms, r.PaymentTerms)
	domain.Assign(&s.Rating, r.Rating)
	domain.Assign(&s.Active, r.Active)
}
