// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for account persistence.
var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountContactTaken is returned when a unique contact index rejects a write.
	ErrAccountContactTaken = errors.New("account contact already in use")
	// ErrProviderProfileNotFound is returned when an account has no provider profile.
	ErrProviderProfileNotFound = errors.New("provider profile not found")
)

// AccountField names a group of account columns that Update writes.
type AccountField string

const (
	AccountFieldPassword   AccountField = "password"
	AccountFieldResetOtp   AccountField = "resetOtp"
	AccountFieldResetToken AccountField = "resetToken"
	AccountFieldLastLogin  AccountField = "lastLogin"
	AccountFieldActive     AccountField = "active"
)

// AccountRepository defines the standard operations for account persistence.
type AccountRepository interface {
	// FindByID retrieves a single account by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByEmail retrieves an account by its lower-cased email.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// FindByPhone retrieves an account by its exact phone.
	FindByPhone(ctx context.Context, phone string) (*entity.Account, error)

	// FindByContact retrieves the account that occupies any present contact.
	FindByContact(ctx context.Context, contact entity.Contact) (*entity.Account, error)

	// FindByFederatedID retrieves an account by external provider and subject.
	FindByFederatedID(ctx context.Context, provider entity.AuthProvider, subject string) (*entity.Account, error)

	// FindByResetTokenHash retrieves the account holding an unexpired reset token fingerprint.
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*entity.Account, error)

	// Create persists a new account. Contact collisions return ErrAccountContactTaken.
	Create(ctx context.Context, account *entity.Account) error

	// Update writes only the listed fields of an existing account, so
	// concurrent writers touching different fields do not clobber each other.
	Update(ctx context.Context, account *entity.Account, fields ...AccountField) error
}

// ProviderProfileRepository persists the provider role profile.
type ProviderProfileRepository interface {
	Create(ctx context.Context, profile *entity.ProviderProfile) error
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.ProviderProfile, error)
}
