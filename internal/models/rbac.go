package models

// Role is the permission group a user belongs to.
type Role string

const (
	// RoleAdmin reads and writes every package and manages contractors.
	RoleAdmin Role = "Admin"
	// RoleUser works on the packages it created.
	RoleUser Role = "User"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// SeesAllPackages reports whether the role bypasses ownership filtering.
func (r Role) SeesAllPackages() bool {
	return r == RoleAdmin
}

// Satisfies reports whether r meets the required role. Admin satisfies every
// requirement; User satisfies only User.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// Identity is the authenticated caller as seen by services.
type Identity struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
