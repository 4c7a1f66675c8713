package enums

import "fmt"

// UserRole represents the account-level permission tier.
type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleStaff    UserRole = "STAFF"
	UserRoleAdmin    UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleStaff,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// CanManageCatalog reports whether the role may create or edit products.
func (u UserRole) CanManageCatalog() bool {
	return u == UserRoleStaff || u == UserRoleAdmin
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
