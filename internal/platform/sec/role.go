// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted access, including user-directory deletion
	RoleAdmin UserRole = "admin"

	// Default role for standard registered users
	RoleUser UserRole = "user"
)

// IsValid reports whether the role is one of the known enumerated values.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 40
	case RoleUser:
		return 10
	default:
		return 0
	}
}
