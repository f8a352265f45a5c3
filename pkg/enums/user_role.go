package enums

// UserRole gates which operations a user may perform.
type UserRole string

const (
	UserRoleEmployee UserRole = "employee"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleEmployee,
	UserRoleAdmin,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	return oneOf(r, validUserRoles)
}

// IsAdmin reports whether the role may perform administrative operations.
func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	return parse(value, validUserRoles, "user role")
}
