package enums

import "fmt"

// Role is the single source of truth for an operator's permissions. Every
// permission check derives from the role code at call time; derived booleans
// are never stored.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleAva        Role = "ava"
)

var validRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleAva,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role carries admin privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsSuperAdmin reports whether the role is the unrestricted operator role.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// CanManageCatalog reports whether the role may mutate plans and addons.
func (r Role) CanManageCatalog() bool {
	return r.IsAdmin()
}

// CanManageAffiliates reports whether the role may create or deactivate
// affiliates and their coupons.
func (r Role) CanManageAffiliates() bool {
	return r.IsAdmin()
}

// CanViewFinance reports whether the role may read financial summaries.
func (r Role) CanViewFinance() bool {
	return r.IsAdmin()
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
