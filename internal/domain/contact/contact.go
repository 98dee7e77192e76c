// Package contact defines the contact person domain model.
package contact

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Contact is a person at a customer or supplier.
type Contact struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"-"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Position   string    `json:"position,omitempty"`
	CustomerID *string   `json:"customer_id,omitempty"`
	SupplierID *string   `json:"supplier_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a contact.
type CreateRequest struct {
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	Email      string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string  `json:"phone,omitempty" validate:"max=50"`
	Position   string  `json:"position,omitempty" validate:"max=100"`
	CustomerID *string `json:"customer_id,omitempty"`
	SupplierID *string `json:"supplier_id,omitempty"`
}

// Validate checks the request. A contact belongs to at most one organization.
func (r *CreateRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.CustomerID != nil && r.SupplierID != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errors.New("contact cannot belong to both a customer and a supplier"))
	}
	return nil
}

// UpdateRequest holds the mutable fields of a contact.
type UpdateRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty"`
	Position  *string `json:"position,omitempty"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error { return domain.Validate(r) }

// Apply copies the set fields onto c.
func (r *UpdateRequest) Apply(c *Contact) {
	domain.Assign(&c.FirstName, r.FirstName)
	domain.Assign(&c.LastName, r.LastName)
	domain.Assign(&c.Email, r.Email)
	domain.Assign(&c.Phone, r.Phone)
	domain.Assign(&c.Position, r.Position)
}
