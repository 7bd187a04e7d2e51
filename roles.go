package identity

// UserRole is the user's role
type UserRole string

const (
	// RoleAdmin manages users, roles, and every lead
	RoleAdmin UserRole = "admin"
	// RoleManager oversees lead assignment and reporting
	RoleManager UserRole = "manager"
	// RoleSalesRep works assigned leads; the default for new accounts
	RoleSalesRep UserRole = "sales_rep"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSalesRep:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RoleManager,
		RoleSalesRep,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// Authorize gates an operation on exact role membership. There is no
// hierarchy: an admin does not satisfy a manager-only check unless the
// allowed set names admin explicitly. An empty resolved role means no
// identity was established and yields ErrUnauthenticated, not ErrForbidden.
func Authorize(resolved UserRole, allowed ...UserRole) error {
	if resolved == "" {
		return ErrUnauthenticated
	}

	for _, role := range allowed {
		if resolved == role {
			return nil
		}
	}

	return ErrForbidden
}
