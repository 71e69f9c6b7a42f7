// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	// OtpTTL is the hard expiry of registration and reset OTPs.
	OtpTTL = 10 * time.Minute
	// VerificationTokenTTL bounds deferred registration completion.
	VerificationTokenTTL = 30 * time.Minute
	// ResetTokenTTL bounds the one-shot password reset token.
	ResetTokenTTL = 10 * time.Minute

	MinAccountPasswordLength = 6
	MinAdminPasswordLength   = 8
	// MaxPasswordBytes is the bcrypt input limit, counted in bytes.
	MaxPasswordBytes = 72
)

// DeviceInfo is captured when a refresh token is issued.
type DeviceInfo struct {
	UserAgent string
	IP        string
}

// RefreshToken represents a long-lived, authorized session of either principal kind.
// Only the SHA-256 fingerprint of the raw token is ever stored.
type RefreshToken struct {
	ID         uuid.UUID     // The unique ID for this specific refresh token record.
	OwnerKind  PrincipalKind // Account or administrator.
	OwnerID    uuid.UUID     // Links this session to the principal it belongs to.
	TokenHash  string        // SHA-256 fingerprint of the raw refresh token.
	ExpiresAt  time.Time     // The exact time when this refresh token becomes invalid.
	Revoked    bool          // Set on rotation, logout and logout-all.
	DeviceInfo DeviceInfo    // Client captured at issuance.
	LastUsedAt *time.Time    // Updated on rotation.
	CreatedAt  time.Time     // Timestamp of when this session was created.
}

// IsValid reports whether the record can still be exchanged.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
