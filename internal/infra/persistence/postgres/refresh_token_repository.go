// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// refreshTokenRepository implements the domain.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// CreateRefreshToken persists a new session record.
func (repo *refreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	return repo.create(repo.db.WithContext(ctx), token)
}

func (repo *refreshTokenRepository) create(db *gorm.DB, token *entity.RefreshToken) error {
	tokenM := fromRefreshTokenDomain(token)

	if err := db.Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrRefreshTokenConflict)
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInvalidInput.WrapMessage("missing required token information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	// Update the entity with generated values
	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindByOwnerAndHash returns the record iff both fingerprint and owner match.
func (repo *refreshTokenRepository) FindByOwnerAndHash(
	ctx context.Context,
	kind entity.PrincipalKind,
	ownerID uuid.UUID,
	tokenHash string,
) (*entity.RefreshToken, error) {
	return repo.first(ctx, "token_hash = ? AND owner_kind = ? AND owner_id = ?", tokenHash, string(kind), ownerID)
}

// FindRefreshTokenByHash retrieves a refresh token record by its securely stored hash.
func (repo *refreshTokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	return repo.first(ctx, "token_hash = ?", tokenHash)
}

func (repo *refreshTokenRepository) first(ctx context.Context, query string, args ...any) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).Where(query, args...).First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toRefreshTokenDomain(&tokenM), nil
}

// Rotate revokes the consumed record with a conditional update and inserts
// its successor in the same transaction. Only one caller can flip revoked
// from false to true, so a second concurrent rotation sees zero affected rows.
func (repo *refreshTokenRepository) Rotate(ctx context.Context, consumed *entity.RefreshToken, next *entity.RefreshToken) error {
	now := time.Now().UTC()

	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.RefreshTokenModel{}).
			Where("id = ? AND revoked = ?", consumed.ID, false).
			Updates(map[string]any{"revoked": true, "last_used_at": now})
		if result.Error != nil {
			return domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke refresh token")
		}
		if result.RowsAffected == 0 {
			return repository.ErrRefreshTokenNotFound
		}

		next.LastUsedAt = &now

		return repo.create(tx, next)
	})
}

// RevokeByHash revokes a single record. Missing or revoked records are not an error.
func (repo *refreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string) error {
	err := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke refresh token")
	}

	return nil
}

// RevokeAllFor revokes every live record owned by the principal.
func (repo *refreshTokenRepository) RevokeAllFor(ctx context.Context, kind entity.PrincipalKind, ownerID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("owner_kind = ? AND owner_id = ? AND revoked = ?", string(kind), ownerID, false).
		Update("revoked", true)
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke refresh tokens")
	}

	return result.RowsAffected, nil
}

// DeleteExpired removes records that are revoked or past expiry.
func (repo *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("revoked = ? OR expires_at <= ?", true, now.UTC()).
		Delete(&model.RefreshTokenModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired refresh tokens")
	}

	return result.RowsAffected, nil
}

// CountActive returns the number of live sessions for a principal.
func (repo *refreshTokenRepository) CountActive(ctx context.Context, kind entity.PrincipalKind, ownerID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("owner_kind = ? AND owner_id = ? AND revoked = ? AND expires_at > ?", string(kind), ownerID, false, now.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

func toRefreshTokenDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	return &entity.RefreshToken{
		ID:        data.ID,
		OwnerKind: entity.PrincipalKind(data.OwnerKind),
		OwnerID:   data.OwnerID,
		TokenHash: data.TokenHash,
		ExpiresAt: data.ExpiresAt,
		Revoked:   data.Revoked,
		DeviceInfo: entity.DeviceInfo{
			UserAgent: data.UserAgent,
			IP:        data.IPAddress,
		},
		LastUsedAt: data.LastUsedAt,
		CreatedAt:  data.CreatedAt,
	}
}

func fromRefreshTokenDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	return &model.RefreshTokenModel{
		ID:         data.ID,
		OwnerKind:  string(data.OwnerKind),
		OwnerID:    data.OwnerID,
		TokenHash:  data.TokenHash,
		ExpiresAt:  data.ExpiresAt.UTC(),
		Revoked:    data.Revoked,
		UserAgent:  data.DeviceInfo.UserAgent,
		IPAddress:  data.DeviceInfo.IP,
		LastUsedAt: utcPtr(data.LastUsedAt),
		CreatedAt:  data.CreatedAt,
	}
}
