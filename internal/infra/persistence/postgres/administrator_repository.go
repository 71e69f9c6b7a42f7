package postgres

import (
	"context"
	"strings"

	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type administratorRepository struct {
	db *gorm.DB
}

// NewAdministratorRepository is the constructor for administratorRepository.
func NewAdministratorRepository(db *gorm.DB) repository.AdministratorRepository {
	return &administratorRepository{db: db}
}

func (repo *administratorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Administrator, error) {
	return repo.first(ctx, "id = ?", id)
}

func (repo *administratorRepository) FindByEmail(ctx context.Context, email string) (*entity.Administrator, error) {
	return repo.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (repo *administratorRepository) first(ctx context.Context, query string, args ...any) (*entity.Administrator, error) {
	var adminM model.AdministratorModel
	if err := repo.db.WithContext(ctx).Where(query, args...).First(&adminM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAdministratorNotFound
		}

		return nil, errors.Wrap(err, "failed to find administrator")
	}

	return toAdministratorDomain(&adminM), nil
}

// List returns every administrator, oldest first.
func (repo *administratorRepository) List(ctx context.Context) ([]*entity.Administrator, error) {
	var adminModels []*model.AdministratorModel
	if err := repo.db.WithContext(ctx).Order("created_at").Find(&adminModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list administrators")
	}

	admins := make([]*entity.Administrator, 0, len(adminModels))
	for _, adminM := range adminModels {
		admins = append(admins, toAdministratorDomain(adminM))
	}

	return admins, nil
}

func (repo *administratorRepository) Create(ctx context.Context, admin *entity.Administrator) error {
	adminM := fromAdministratorDomain(admin)

	if err := repo.db.WithContext(ctx).Create(adminM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrAdministratorEmailTaken)
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create administrator")
	}

	admin.ID = adminM.ID
	admin.CreatedAt = adminM.CreatedAt
	admin.UpdatedAt = adminM.UpdatedAt

	return nil
}

func (repo *administratorRepository) Update(ctx context.Context, admin *entity.Administrator) error {
	adminM := fromAdministratorDomain(admin)

	result := repo.db.WithContext(ctx).
		Model(adminM).
		Select("*").
		Omit("ID", "CreatedAt", "CreatedBy").
		Updates(adminM)
	if err := result.Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrAdministratorEmailTaken)
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update administrator")
	}
	if result.RowsAffected == 0 {
		return repository.ErrAdministratorNotFound
	}

	admin.UpdatedAt = adminM.UpdatedAt

	return nil
}

func (repo *administratorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Delete(&model.AdministratorModel{}, "id = ?", id)
	if err := result.Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete administrator")
	}
	if result.RowsAffected == 0 {
		return repository.ErrAdministratorNotFound
	}

	return nil
}

func (repo *administratorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.AdministratorModel{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count administrators")
	}

	return count, nil
}

func toAdministratorDomain(data *model.AdministratorModel) *entity.Administrator {
	return &entity.Administrator{
		ID:           data.ID,
		FullName:     data.FullName,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Active:       data.Active,
		Role:         entity.AdminRole(data.Role),
		Permissions:  entity.PermissionsFromStrings(data.Permissions),
		CreatedBy:    data.CreatedBy,
		LastLoginAt:  data.LastLoginAt,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func fromAdministratorDomain(data *entity.Administrator) *model.AdministratorModel {
	return &model.AdministratorModel{
		ID:           data.ID,
		FullName:     data.FullName,
		Email:        strings.ToLower(strings.TrimSpace(data.Email)),
		PasswordHash: data.PasswordHash,
		Active:       data.Active,
		Role:         string(data.Role),
		Permissions:  jsonStrings(data.Permissions.Normalize().ToStrings()),
		CreatedBy:    data.CreatedBy,
		LastLoginAt:  utcPtr(data.LastLoginAt),
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
