// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// AuthProvider names where an Account's credential lives.
type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "local"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderFacebook AuthProvider = "facebook"
	AuthProviderApple    AuthProvider = "apple"
)

func (p AuthProvider) IsValid() bool {
	switch p {
	case AuthProviderLocal, AuthProviderGoogle, AuthProviderFacebook, AuthProviderApple:
		return true
	default:
		return false
	}
}

// Account is the canonical identity row of an end-user principal.
// Role-specific data lives in sibling profile entities linked by AccountID.
type Account struct {
	ID              uuid.UUID    // Generated on creation.
	FullName        string       // 2 to 100 characters.
	Email           string       // Lower-cased, empty when absent.
	Phone           string       // Stored as received, empty when absent.
	PasswordHash    string       // bcrypt hash, set only for local accounts.
	AuthProvider    AuthProvider // Where the credential lives.
	ProviderSubject string       // Federated subject identifier (e.g. Google's 'sub' claim).
	Role            Role         // Immutable after creation.
	Active          bool         // False denies login and refresh.
	TermsAccepted   bool         // Must be true when a local account is created.
	Location        *Location    // Optional geo point and address.
	ProfileImageRef string       // Opaque object store handle.

	ResetOtpHash        string
	ResetOtpExpiresAt   *time.Time
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is a geo point in (lon, lat) order with a free-form address.
type Location struct {
	Point   orb.Point
	Address string
}

// Contact returns the account's email and phone as a Contact.
func (a *Account) Contact() Contact {
	return Contact{Email: a.Email, Phone: a.Phone}
}

// HasPassword reports whether the account can sign in with a password.
func (a *Account) HasPassword() bool {
	return a.AuthProvider == AuthProviderLocal && a.PasswordHash != ""
}

// ClearResetOtp drops the password-reset OTP.
func (a *Account) ClearResetOtp() {
	a.ResetOtpHash = ""
	a.ResetOtpExpiresAt = nil
}

// ClearResetToken drops the one-shot reset token.
func (a *Account) ClearResetToken() {
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = nil
}

// VerificationStatus is the moderation state of a role-specific profile.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	default:
		return false
	}
}

// ProviderProfile holds data specific to the "provider" role.
type ProviderProfile struct {
	ID                 uuid.UUID          // Profile identifier.
	AccountID          uuid.UUID          // Foreign Key that links this profile to its Account.
	Occupation         string             // The provider's trade.
	ReferenceID        string             // External reference, e.g. a national ID number.
	IDImageRefs        []string           // Object store handles of the uploaded ID images.
	VerificationStatus VerificationStatus // Moderation state, pending until reviewed.
	RejectionReason    string             // Set when VerificationStatus is rejected.
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
