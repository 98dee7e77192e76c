package tenant

import "time"

// Role is a user's authority inside one tenant.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleUser     Role = "user"
	RoleReadonly Role = "readonly"
)

// roleRank orders roles from most to least privileged.
var roleRank = map[Role]int{
	RoleOwner:    5,
	RoleAdmin:    4,
	RoleManager:  3,
	RoleUser:     2,
	RoleReadonly: 1,
}

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the authority of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.Valid()
}

// Membership links a user to a tenant with a role (TenantUser).
type Membership struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipRequest adds a user to a tenant.
type MembershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   Role   `json:"role" validate:"required,oneof=owner admin manager user readonly"`
}
