// Package entity contains the core business objects of the project.
package entity

// PrincipalKind separates the two disjoint identity spaces.
type PrincipalKind string

const (
	// PrincipalAccount is an end-user Account of any role.
	PrincipalAccount PrincipalKind = "account"
	// PrincipalAdministrator is a platform Administrator.
	PrincipalAdministrator PrincipalKind = "administrator"
)

// String returns the string representation of the PrincipalKind.
func (k PrincipalKind) String() string {
	return string(k)
}

// IsValid checks if the PrincipalKind is a valid value.
func (k PrincipalKind) IsValid() bool {
	switch k {
	case PrincipalAccount, PrincipalAdministrator:
		return true
	default:
		return false
	}
}
