package usecase

import (
	"context"
	"time"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateAdministratorInput defines the data required to create an administrator.
type CreateAdministratorInput struct {
	ActorID     uuid.UUID
	FullName    string
	Email       string
	Password    string
	Role        entity.AdminRole // Defaults to admin.
	Permissions []string
}

// UpdateAdministratorInput is a partial update. Nil fields are left untouched.
type UpdateAdministratorInput struct {
	ActorID     uuid.UUID
	TargetID    uuid.UUID
	FullName    *string
	Email       *string
	Password    *string
	Role        *entity.AdminRole
	Permissions *[]string
}

// AdministratorSummary is the public view of an Administrator.
type AdministratorSummary struct {
	ID          uuid.UUID        `json:"id"`
	FullName    string           `json:"fullName"`
	Email       string           `json:"email"`
	Role        entity.AdminRole `json:"role"`
	Active      bool             `json:"active"`
	Permissions []string         `json:"permissions"`
	CreatedBy   *uuid.UUID       `json:"createdBy,omitempty"`
	LastLoginAt *time.Time       `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewAdministratorSummary maps an administrator with its effective permissions.
func NewAdministratorSummary(admin *entity.Administrator) *AdministratorSummary {
	return &AdministratorSummary{
		ID:          admin.ID,
		FullName:    admin.FullName,
		Email:       admin.Email,
		Role:        admin.Role,
		Active:      admin.Active,
		Permissions: admin.EffectivePermissions().ToStrings(),
		CreatedBy:   admin.CreatedBy,
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt,
	}
}

// AdministratorUsecase manages administrator accounts. Every operation
// requires the acting administrator to be a super-admin.
type AdministratorUsecase interface {
	Create(ctx context.Context, input *CreateAdministratorInput) (*AdministratorSummary, error)
	Update(ctx context.Context, input *UpdateAdministratorInput) (*AdministratorSummary, error)
	Delete(ctx context.Context, actorID, targetID uuid.UUID) error
	ToggleActive(ctx context.Context, actorID, targetID uuid.UUID) (*AdministratorSummary, error)
	List(ctx context.Context, actorID uuid.UUID) ([]*AdministratorSummary, error)
	Get(ctx context.Context, actorID, targetID uuid.UUID) (*AdministratorSummary, error)
	// Bootstrap creates the first super-admin without an acting administrator.
	Bootstrap(ctx context.Context, fullName, email, password string) (*AdministratorSummary, bool, error)
}

// AccountQueryUsecase is the read-only administrative view of accounts.
type AccountQueryUsecase interface {
	Get(ctx context.Context, accountID uuid.UUID) (*AccountSummary, error)
}

// SweepResult counts what one maintenance pass removed.
type SweepResult struct {
	RefreshTokensDeleted        int64
	PendingRegistrationsCleared int
	HandlesReleased             int
}

// MaintenanceUsecase reclaims expired sessions and abandoned registrations.
type MaintenanceUsecase interface {
	Sweep(ctx context.Context) (*SweepResult, error)
}
