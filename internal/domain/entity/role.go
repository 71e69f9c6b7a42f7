// Package entity contains the core business objects of the project.
package entity

import "slices"

// Role is the immutable tag on an Account that selects its creation path.
type Role string

const (
	// RoleUser indicates a customer.
	RoleUser Role = "user"
	// RoleProvider indicates an independent service provider.
	RoleProvider Role = "provider"
	// RoleBusinessOwner indicates a business owner with employees.
	RoleBusinessOwner Role = "businessOwner"
	// RoleEventManager indicates an event manager selling tickets.
	RoleEventManager Role = "eventManager"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleProvider, RoleBusinessOwner, RoleEventManager:
		return true
	default:
		return false
	}
}

// AdminRole is the role of an Administrator.
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "super-admin"
	AdminRoleAdmin      AdminRole = "admin"
)

func (r AdminRole) String() string {
	return string(r)
}

func (r AdminRole) IsValid() bool {
	return r == AdminRoleSuperAdmin || r == AdminRoleAdmin
}

// Permission is a capability tag held by an Administrator.
type Permission string

const (
	PermissionManageUsers     Permission = "canManageUsers"
	PermissionManageProviders Permission = "canManageProviders"
	PermissionManageSettings  Permission = "canManageSettings"
	PermissionViewReports     Permission = "canViewReports"
)

// AllPermissions lists every capability in a stable order.
var AllPermissions = Permissions{
	PermissionManageUsers,
	PermissionManageProviders,
	PermissionManageSettings,
	PermissionViewReports,
}

func (p Permission) String() string {
	return string(p)
}

func (p Permission) IsValid() bool {
	return slices.Contains(AllPermissions, p)
}

// Permissions is a set of capabilities kept in a slice for storage.
type Permissions []Permission

// Contains checks if the set contains a specific permission.
func (ps Permissions) Contains(p Permission) bool {
	return slices.Contains(ps, p)
}

// Normalize drops unknown and duplicate entries, keeping the canonical order.
func (ps Permissions) Normalize() Permissions {
	result := make(Permissions, 0, len(ps))
	for _, p := range AllPermissions {
		if ps.Contains(p) {
			result = append(result, p)
		}
	}

	return result
}

// ToStrings converts Permissions to []string.
func (ps Permissions) ToStrings() []string {
	result := make([]string, len(ps))
	for i, p := range ps {
		result[i] = p.String()
	}

	return result
}

// PermissionsFromStrings converts []string to Permissions, filtering out invalid entries.
func PermissionsFromStrings(ss []string) Permissions {
	result := make(Permissions, 0, len(ss))
	for _, s := range ss {
		p := Permission(s)
		if p.IsValid() {
			result = append(result, p)
		}
	}

	return result.Normalize()
}

// DefaultPermissions derives the capability set for a role when none is stored.
func DefaultPermissions(role AdminRole) Permissions {
	if role == AdminRoleSuperAdmin {
		return slices.Clone(AllPermissions)
	}

	return Permissions{PermissionViewReports}
}
