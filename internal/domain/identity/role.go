package identity

import "strings"

// Role is the single role attribute carried by an authenticated caller
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleOperator   Role = "operator"
	RoleWarehouse  Role = "warehouse"
	RoleQC         Role = "qc"
	RoleAccountant Role = "accountant"
)

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleOperator, RoleWarehouse, RoleQC, RoleAccountant:
		return true
	}
	return false
}

// ParseRole normalizes s into a Role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}
