package domain

// Role is the back-office role carried by the caller's access token.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDirector   Role = "director"
	RoleAccounting Role = "accounting"
	RoleCashier    Role = "cashier"
	RoleAgent      Role = "agent"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleAccounting, RoleCashier, RoleAgent:
		return true
	}
	return false
}

// Actor identifies the authenticated user performing an operation.
// Authentication itself happens outside this service; the actor is read from token claims.
type Actor struct {
	UserID   string `json:"userID"`
	Role     Role   `json:"role"`
	AgencyID string `json:"agencyID"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// HasRole reports whether the actor holds any of the given roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
