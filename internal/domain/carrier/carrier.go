// Package carrier defines the freight carrier domain model.
package carrier

import (
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Mode is the transport mode a carrier operates.
type Mode string

const (
	ModeRoad Mode = "road"
	ModeRail Mode = "rail"
	ModeSea  Mode = "sea"
	ModeAir  Mode = "air"
)

// Carrier transports goods for the tenant.
type Carrier struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	SCAC      string    `json:"scac,omitempty"` // Standard Carrier Alpha Code
	Mode      Mode      `json:"mode"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a carrier.
type CreateRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	SCAC  string `json:"scac,omitempty" validate:"omitempty,min=2,max=4"`
	Mode  Mode   `json:"mode" validate:"required,oneof=road rail sea air"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"max=50"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error { return domain.Validate(r) }

// UpdateRequest holds the mutable fields of a carrier.
type UpdateRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Mode   *Mode   `json:"mode,omitempty" validate:"omitempty,oneof=road rail sea air"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone  *string `json:"phone,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error { return domain.Validate(r) }

// Apply copies the set fields onto c.
func (r *UpdateRequest) Apply(c *Carrier) {
	domain.Assign(&c.Name, r.Name)
	domain.Assign(&c.Mode, r.Mode)
	domain.Assign(&c.Email, r.Email)
	domain.Assign(&c.Phone, r.Phone)
	domain.Assign(&c.Active, r.Active)
}
