package models

// Role represents the caller role resolved by the identity provider
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleProfessor Role = "professor"
	RoleStudent   Role = "student"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return true
	}
	return false
}

// Identity is the authenticated caller. Users live in the identity
// provider; the core only ever sees this pair.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the caller is an administrator
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
