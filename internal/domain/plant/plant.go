// Package plant defines the plant (production or storage site) domain model.
package plant

import (
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Plant is a site owned by the tenant.
type Plant struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a plant.
type CreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Code    string `json:"code" validate:"required,max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	City    string `json:"city,omitempty" validate:"max=100"`
	Country string `json:"country,omitempty" validate:"max=100"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error { return domain.Validate(r) }

// UpdateRequest holds the mutable fields of a plant.
type UpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Country *string `json:"country,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error { return domain.Validate(r) }

// Apply copies the set fields onto p.
func (r *UpdateRequest) Apply(p *Plant) {
	domain.Assign(&p.Name, r.Name)
	domain.Assign(&p.Address, r.Address)
	domain.Assign(&p.City, r.City)
	domain.Assign(&p.Country, r.Country)
	domain.Assign(&p.Active, r.Active)
}
