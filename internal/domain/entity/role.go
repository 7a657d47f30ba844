// Package entity contains the core business objects of the project.
package entity

import "slices"

// Role represents the access level a platform account holds.
type Role string

const (
	// RoleAdmin manages tenants, users and platform configuration.
	RoleAdmin Role = "admin"
	// RoleManager manages sites, devices and work orders for a tenant.
	RoleManager Role = "manager"
	// RoleTechnician executes work orders and acknowledges alerts.
	RoleTechnician Role = "technician"
	// RoleViewer has read-only access to dashboards and reports.
	RoleViewer Role = "viewer"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleViewer:
		return true
	default:
		return false
	}
}

// Roles is a slice of Role for convenience.
type Roles []Role

// Contains checks if the roles slice contains a specific role.
func (rs Roles) Contains(role Role) bool {
	return slices.Contains(rs, role)
}

// ToStrings converts Roles to []string for JWT compatibility.
func (rs Roles) ToStrings() []string {
	result := make([]string, len(rs))
	for i, r := range rs {
		result[i] = r.String()
	}

	return result
}
