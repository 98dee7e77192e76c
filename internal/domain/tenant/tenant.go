// Package tenant defines the tenant domain model for shared-schema multi-tenancy.
package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// Tenant represents an isolated customer organization. All tenants share one
// schema; their rows are partitioned by tenant_id.
type Tenant struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Domain       string            `json:"domain,omitempty"`
	ContactEmail string            `json:"contact_email,omitempty"`
	ContactPhone string            `json:"contact_phone,omitempty"`
	Enabled      bool              `json:"enabled"`
	Trial        bool              `json:"trial"`
	TrialEndsAt  *time.Time        `json:"trial_ends_at,omitempty"`
	Settings     map[string]string `json:"settings,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsActive reports whether the tenant may serve requests at time now.
// A trial tenant stops being active once its trial has ended.
func (t *Tenant) IsActive(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	if t.Trial && t.TrialEndsAt != nil && now.After(*t.TrialEndsAt) {
		return false
	}
	return true
}

// Descriptor is the public view of a tenant returned to clients.
type Descriptor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain,omitempty"`
	Trial  bool   `json:"trial"`
}

// Describe returns the client-facing descriptor.
func (t *Tenant) Describe() Descriptor {
	return Descriptor{ID: t.ID, Name: t.Name, Slug: t.Slug, Domain: t.Domain, Trial: t.Trial}
}

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// ValidSlug reports whether s is a 3-64 character URL-safe slug.
func ValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	Name         string            `json:"name" validate:"required,max=200"`
	Slug         string            `json:"slug"`
	Domain       string            `json:"domain,omitempty" validate:"omitempty,hostname,max=253"`
	ContactEmail string            `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone string            `json:"contact_phone,omitempty" validate:"max=50"`
	Trial        bool              `json:"trial,omitempty"`
	TrialEndsAt  *time.Time        `json:"trial_ends_at,omitempty"`
	Settings     map[string]string `json:"settings,omitempty"`
}

// Normalize lower-cases the slug and domain.
func (r *CreateRequest) Normalize() {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
}

// Validate checks the request after normalization.
func (r *CreateRequest) Validate() error {
	r.Normalize()
	if err := domain.Validate(r); err != nil {
		return err
	}
	if !ValidSlug(r.Slug) {
		return fmt.Errorf("%w: invalid slug %q: must be 3-64 lowercase alphanumeric characters or hyphens", domain.ErrValidation, r.Slug)
	}
	return nil
}

// UpdateRequest holds the fields that can be updated on a tenant.
type UpdateRequest struct {
	Name         string            `json:"name,omitempty" validate:"max=200"`
	Domain       *string           `json:"domain,omitempty"`
	ContactEmail *string           `json:"contact_email,omitempty"`
	ContactPhone *string           `json:"contact_phone,omitempty"`
	Enabled      *bool             `json:"enabled,omitempty"`
	Trial        *bool             `json:"trial,omitempty"`
	TrialEndsAt  *time.Time        `json:"trial_ends_at,omitempty"`
	Settings     map[string]string `json:"settings,omitempty"`
}

// Apply copies the set fields of r onto t.
func (r *UpdateRequest) Apply(t *Tenant) {
	if r.Name != "" {
		t.Name = r.Name
	}
	if r.Domain != nil {
		t.Domain = strings.ToLower(strings.TrimSpace(*r.Domain))
	}
	if r.ContactEmail != nil {
		t.ContactEmail = *r.ContactEmail
	}
	if r.ContactPhone != nil {
		t.ContactPhone = *r.ContactPhone
	}
	if r.Enabled != nil {
		t.Enabled = *r.Enabled
	}
	if r.Trial != nil {
		t.Trial = *r.Trial
	}
	if r.TrialEndsAt != nil {
		t.TrialEndsAt = r.TrialEndsAt
	}
	if r.Settings != nil {
		t.Settings = r.Settings
	}
}
