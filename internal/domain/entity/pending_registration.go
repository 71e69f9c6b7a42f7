package entity

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinFullNameLength = 2
	MaxFullNameLength = 100
)

// NormalizeFullName trims a display name and reports whether it holds
// between MinFullNameLength and MaxFullNameLength characters.
func NormalizeFullName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)

	return name, n >= MinFullNameLength && n <= MaxFullNameLength
}

// PendingState is the position of a PendingRegistration in the join flow.
// Finalized and Expired are terminal and leave no row behind.
type PendingState string

const (
	PendingAwaitingOtp PendingState = "awaitingOtp"
	PendingVerified    PendingState = "verified"
	PendingExpired     PendingState = "expired"
)

// PendingRegistration holds an in-progress join keyed by contact.
type PendingRegistration struct {
	ID    uuid.UUID
	Email string // Unique when present, lower-cased.
	Phone string // Unique when present.
	Role  Role   // Flow role: user or provider.

	FullName      string
	Occupation    string
	ReferenceID   string
	IDImageRefs   []string // Uploaded handles owned by this row until finalization.
	PasswordHash  string
	TermsAccepted bool

	OtpHash      string
	OtpExpiresAt time.Time
	Verified     bool

	VerificationTokenHash      string
	VerificationTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrationPatch carries optional profile fields supplied at any step.
// Nil pointers leave the row untouched.
type RegistrationPatch struct {
	FullName      *string
	Password      *string
	TermsAccepted *bool
	Occupation    *string
	ReferenceID   *string
	IDImageRefs   []string
}

func (p *PendingRegistration) Contact() Contact {
	return Contact{Email: p.Email, Phone: p.Phone}
}

// State derives the flow state at the given instant.
func (p *PendingRegistration) State(now time.Time) PendingState {
	if p.Verified {
		if p.VerificationTokenExpiresAt != nil && !now.Before(*p.VerificationTokenExpiresAt) {
			return PendingExpired
		}

		return PendingVerified
	}
	if p.OtpExpired(now) {
		return PendingExpired
	}

	return PendingAwaitingOtp
}

// OtpExpired reports whether now is at or past the OTP deadline.
func (p *PendingRegistration) OtpExpired(now time.Time) bool {
	return !now.Before(p.OtpExpiresAt)
}

// VerificationTokenValid reports whether the deferred-completion token may be used.
func (p *PendingRegistration) VerificationTokenValid(now time.Time) bool {
	return p.Verified &&
		p.VerificationTokenHash != "" &&
		p.VerificationTokenExpiresAt != nil &&
		now.Before(*p.VerificationTokenExpiresAt)
}

// ReadyToFinalize reports whether every field needed for an Account is present.
func (p *PendingRegistration) ReadyToFinalize() bool {
	_, nameOK := NormalizeFullName(p.FullName)

	return nameOK && p.PasswordHash != "" && p.TermsAccepted
}

// ApplyProfile merges non-password patch fields. Password hashing is the caller's job.
// Names outside the allowed length are ignored.
func (p *PendingRegistration) ApplyProfile(patch RegistrationPatch) {
	if patch.FullName != nil {
		if name, ok := NormalizeFullName(*patch.FullName); ok {
			p.FullName = name
		}
	}
	if patch.TermsAccepted != nil {
		p.TermsAccepted = *patch.TermsAccepted
	}
	if patch.Occupation != nil {
		p.Occupation = *patch.Occupation
	}
	if patch.ReferenceID != nil {
		p.ReferenceID = *patch.ReferenceID
	}
}

// ResetOtp stores a fresh OTP and returns the row to AwaitingOtp.
func (p *PendingRegistration) ResetOtp(otpHash string, expiresAt time.Time) {
	p.OtpHash = otpHash
	p.OtpExpiresAt = expiresAt
	p.Verified = false
	p.VerificationTokenHash = ""
	p.VerificationTokenExpiresAt = nil
}

// MarkVerified records a successful OTP exchange with an optional completion token.
func (p *PendingRegistration) MarkVerified(tokenHash string, expiresAt *time.Time) {
	p.Verified = true
	p.VerificationTokenHash = tokenHash
	p.VerificationTokenExpiresAt = expiresAt
}

// Clone returns a deep copy used to restore prior state.
func (p *PendingRegistration) Clone() *PendingRegistration {
	clone := *p
	clone.IDImageRefs = slices.Clone(p.IDImageRefs)
	if p.VerificationTokenExpiresAt != nil {
		t := *p.VerificationTokenExpiresAt
		clone.VerificationTokenExpiresAt = &t
	}

	return &clone
}
