// Package user defines the user domain model for authentication.
package user

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

// User is a global identity. Authority inside a tenant comes from
// tenant.Membership; Superuser grants system-wide administration.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Superuser    bool      `json:"superuser"`
	Guest        bool      `json:"guest"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckOwner returns ErrConflict when existing, an account found under the
// email of requested, cannot stand in for it. A guest owner must be a guest
// account without superuser rights; any other owner must not be a guest.
func CheckOwner(requested, existing *User) error {
	ok := !existing.Guest
	if requested.Guest {
		ok = existing.Guest && !existing.Superuser
	}
	if !ok {
		kind := "regular"
		if requested.Guest {
			kind = "guest"
		}
		return fmt.Errorf("%w: %s is not a %s account", domain.ErrConflict, existing.Email, kind)
	}
	return nil
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Superuser bool   `json:"superuser"`
	Guest     bool   `json:"-"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return invalid("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return invalid("invalid email format")
	}
	if r.Name == "" {
		return invalid("name is required")
	}
	if r.Password == "" {
		return invalid("password is required")
	}
	if len(r.Password) < 8 {
		return invalid("password must be at least 8 characters")
	}
	if r.Guest && r.Superuser {
		return invalid("guest accounts cannot be superusers")
	}
	return nil
}

// LoginRequest is the input for user authentication. Tenant optionally
// selects the tenant (id or slug) the issued token is bound to.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Tenant   string `json:"tenant,omitempty"`
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return invalid("email is required")
	}
	if r.Password == "" {
		return invalid("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string              `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int                 `json:"expires_in"`   // seconds until access token expires
	User        User                `json:"user"`
	Tenant      *tenant.Descriptor  `json:"tenant,omitempty"`
	Memberships []tenant.Membership `json:"memberships,omitempty"`
}

// TokenClaims is the JWT payload. TenantID carries an explicit tenant
// selection made at login; empty means "resolve per request".
type TokenClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Superuser bool   `json:"su,omitempty"`
	Guest     bool   `json:"guest,omitempty"`
	TenantID  string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	Superuser bool
	Guest     bool
	// ClaimTenantID is the tenant selected in the token, if any.
	ClaimTenantID string
}

// IdentityFromClaims converts verified claims into an Identity.
func IdentityFromClaims(c *TokenClaims) *Identity {
	return &Identity{
		UserID:        c.Subject,
		Email:         c.Email,
		Name:          c.Name,
		Superuser:     c.Superuser,
		Guest:         c.Guest,
		ClaimTenantID: c.TenantID,
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}

// Profile is the authenticated user together with their tenant memberships.
type Profile struct {
	User        User                `json:"user"`
	Memberships []tenant.Membership `json:"memberships"`
}
