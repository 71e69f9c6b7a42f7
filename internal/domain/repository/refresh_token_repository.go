// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when a refresh token is not found or was already consumed.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenConflict is returned on a fingerprint collision.
	ErrRefreshTokenConflict = errors.New("refresh token fingerprint already exists")
)

// RefreshTokenRepository defines refresh token and session management operations
// for both principal kinds.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new session record.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindByOwnerAndHash returns the record iff both fingerprint and owner match.
	FindByOwnerAndHash(ctx context.Context, kind entity.PrincipalKind, ownerID uuid.UUID, tokenHash string) (*entity.RefreshToken, error)

	// FindRefreshTokenByHash retrieves a record by fingerprint alone.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// Rotate revokes the consumed record and persists its successor in one transaction.
	// It returns ErrRefreshTokenNotFound when the consumed record was already revoked,
	// which is how concurrent refreshes with the same token are serialized.
	Rotate(ctx context.Context, consumed *entity.RefreshToken, next *entity.RefreshToken) error

	// RevokeByHash revokes a single record. Missing or revoked records are not an error.
	RevokeByHash(ctx context.Context, tokenHash string) error

	// RevokeAllFor revokes every live record owned by the principal.
	RevokeAllFor(ctx context.Context, kind entity.PrincipalKind, ownerID uuid.UUID) (int64, error)

	// DeleteExpired removes records that are revoked or past expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountActive returns the number of live sessions for a principal.
	CountActive(ctx context.Context, kind entity.PrincipalKind, ownerID uuid.UUID, now time.Time) (int64, error)
}
