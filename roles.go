package punchcard

// UserRole is the user's role
type UserRole = string

const (
	// RoleEmployee can log work, file expenses, and request leave
	RoleEmployee UserRole = "employee"
	// RoleAdmin can additionally manage accounts and approve requests
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleEmployee, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleAtLeast reports whether role meets the minimum required role. The
// hierarchy is employee < admin; unknown roles never qualify.
func RoleAtLeast(role, minRole UserRole) bool {
	if !IsValidRole(role) || !IsValidRole(minRole) {
		return false
	}
	if minRole == RoleEmployee {
		return true
	}
	return role == RoleAdmin
}
