package entity

import (
	"time"

	"github.com/google/uuid"
)

// Administrator is a platform operator. It shares no identifier space or
// password store with Account.
type Administrator struct {
	ID           uuid.UUID
	FullName     string
	Email        string // Unique, lower-cased.
	PasswordHash string
	Active       bool
	Role         AdminRole
	Permissions  Permissions // Stored explicitly; empty means derived from Role.
	CreatedBy    *uuid.UUID  // Issuing administrator, nil for the bootstrap account.
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Administrator) IsSuperAdmin() bool {
	return a.Role == AdminRoleSuperAdmin
}

// EffectivePermissions returns the stored set, or the role defaults when none is stored.
func (a *Administrator) EffectivePermissions() Permissions {
	if a.IsSuperAdmin() {
		return DefaultPermissions(AdminRoleSuperAdmin)
	}
	if len(a.Permissions) == 0 {
		return DefaultPermissions(a.Role)
	}

	return a.Permissions.Normalize()
}

// HasPermission passes for super-admins and for explicit members.
func (a *Administrator) HasPermission(p Permission) bool {
	return a.IsSuperAdmin() || a.EffectivePermissions().Contains(p)
}
