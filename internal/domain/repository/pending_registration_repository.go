package repository

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrPendingRegistrationNotFound is returned when no pending row matches the lookup.
	ErrPendingRegistrationNotFound = errors.New("pending registration not found")
	// ErrPendingContactMismatch is returned when inbound contacts disagree with a stored row.
	ErrPendingContactMismatch = errors.New("pending registration contact mismatch")
)

// PendingRegistrationRepository holds in-progress joins keyed by contact.
type PendingRegistrationRepository interface {
	// UpsertByContact finds the row by any present contact, or creates one, and
	// applies the mutation. It returns the stored row, a snapshot of the prior
	// state (nil when created) and whether the row was created by this call.
	UpsertByContact(
		ctx context.Context,
		contact entity.Contact,
		apply func(row *entity.PendingRegistration) error,
	) (row *entity.PendingRegistration, previous *entity.PendingRegistration, created bool, err error)

	// FindByContact loads the row owning the present contacts.
	FindByContact(ctx context.Context, contact entity.Contact) (*entity.PendingRegistration, error)

	// FindByVerificationTokenHash loads the row holding a verification token fingerprint.
	FindByVerificationTokenHash(ctx context.Context, tokenHash string) (*entity.PendingRegistration, error)

	// Save writes every mutable field of an existing row.
	Save(ctx context.Context, row *entity.PendingRegistration) error

	// MarkVerified sets verified and the optional completion token.
	MarkVerified(ctx context.Context, row *entity.PendingRegistration, tokenHash string, tokenExpiresAt *time.Time) error

	// Clear destroys the row.
	Clear(ctx context.Context, id uuid.UUID) error

	// FindStale returns rows whose OTP and verification windows both ended before the cutoff.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*entity.PendingRegistration, error)
}
