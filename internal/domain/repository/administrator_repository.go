package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrAdministratorNotFound is returned when no administrator matches the lookup.
	ErrAdministratorNotFound = errors.New("administrator not found")
	// ErrAdministratorEmailTaken is returned when the unique email index rejects a write.
	ErrAdministratorEmailTaken = errors.New("administrator email already in use")
)

// AdministratorRepository defines persistence for platform administrators.
type AdministratorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Administrator, error)
	FindByEmail(ctx context.Context, email string) (*entity.Administrator, error)
	List(ctx context.Context) ([]*entity.Administrator, error)
	Create(ctx context.Context, admin *entity.Administrator) error
	Update(ctx context.Context, admin *entity.Administrator) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}
