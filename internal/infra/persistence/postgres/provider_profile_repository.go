package postgres

import (
	"context"

	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type providerProfileRepository struct {
	db *gorm.DB
}

// NewProviderProfileRepository is the constructor for providerProfileRepository.
func NewProviderProfileRepository(db *gorm.DB) repository.ProviderProfileRepository {
	return &providerProfileRepository{db: db}
}

// Create persists the provider profile. A missing account surfaces as a foreign key error.
func (repo *providerProfileRepository) Create(ctx context.Context, profile *entity.ProviderProfile) error {
	profileM := fromProviderProfileDomain(profile)

	if err := repo.db.WithContext(ctx).Create(profileM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("provider profile already exists")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrInvalidInput.WrapMessage("invalid account reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create provider profile")
	}

	profile.ID = profileM.ID
	profile.CreatedAt = profileM.CreatedAt
	profile.UpdatedAt = profileM.UpdatedAt

	return nil
}

func (repo *providerProfileRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.ProviderProfile, error) {
	var profileM model.ProviderProfileModel
	if err := repo.db.WithContext(ctx).Where("account_id = ?", accountID).First(&profileM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProviderProfileNotFound
		}

		return nil, errors.Wrap(err, "failed to find provider profile")
	}

	return toProviderProfileDomain(&profileM), nil
}

func toProviderProfileDomain(data *model.ProviderProfileModel) *entity.ProviderProfile {
	return &entity.ProviderProfile{
		ID:                 data.ID,
		AccountID:          data.AccountID,
		Occupation:         data.Occupation,
		ReferenceID:        data.ReferenceID,
		IDImageRefs:        []string(data.IDImageRefs),
		VerificationStatus: entity.VerificationStatus(data.VerificationStatus),
		RejectionReason:    data.RejectionReason,
		CreatedAt:          data.CreatedAt,
		UpdatedAt:          data.UpdatedAt,
	}
}

func fromProviderProfileDomain(data *entity.ProviderProfile) *model.ProviderProfileModel {
	status := data.VerificationStatus
	if status == "" {
		status = entity.VerificationPending
	}

	return &model.ProviderProfileModel{
		ID:                 data.ID,
		AccountID:          data.AccountID,
		Occupation:         data.Occupation,
		ReferenceID:        data.ReferenceID,
		IDImageRefs:        jsonStrings(data.IDImageRefs),
		VerificationStatus: string(status),
		RejectionReason:    data.RejectionReason,
	}
}

// jsonStrings never returns nil so the NOT NULL json column always holds an array.
func jsonStrings(values []string) datatypes.JSONSlice[string] {
	if values == nil {
		return datatypes.JSONSlice[string]{}
	}

	return datatypes.JSONSlice[string](values)
}
