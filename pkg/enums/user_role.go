package enums

import "fmt"

// UserRole drives authorization in the API layer.
type UserRole string

const (
	UserRoleCustomer    UserRole = "customer"
	UserRoleInterpreter UserRole = "interpreter"
	UserRoleAdmin       UserRole = "admin"
	UserRoleSuperadmin  UserRole = "superadmin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleInterpreter,
	UserRoleAdmin,
	UserRoleSuperadmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value matches a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsOperator reports whether the role may act on any booking.
func (u UserRole) IsOperator() bool {
	return u == UserRoleAdmin || u == UserRoleSuperadmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
