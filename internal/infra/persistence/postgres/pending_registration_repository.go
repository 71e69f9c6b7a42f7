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

// upsertAttempts bounds retries after losing an insert race on a contact index.
const upsertAttempts = 2

type pendingRegistrationRepository struct {
	db *gorm.DB
}

// NewPendingRegistrationRepository is the constructor for pendingRegistrationRepository.
func NewPendingRegistrationRepository(db *gorm.DB) repository.PendingRegistrationRepository {
	return &pendingRegistrationRepository{db: db}
}

// UpsertByContact finds the row by any present contact or creates one, then
// applies the mutation. Re-requesting an OTP never inserts a duplicate: the
// unique contact indexes turn a lost insert race into an update on retry.
func (repo *pendingRegistrationRepository) UpsertByContact(
	ctx context.Context,
	contact entity.Contact,
	apply func(row *entity.PendingRegistration) error,
) (*entity.PendingRegistration, *entity.PendingRegistration, bool, error) {
	contact = contact.Normalized()
	if contact.IsEmpty() {
		return nil, nil, false, domainerrors.ErrInvalidInput.WrapMessage("email or phone is required")
	}

	var lastErr error
	for range upsertAttempts {
		existing, err := repo.FindByContact(ctx, contact)
		switch {
		case errors.Is(err, repository.ErrPendingRegistrationNotFound):
			row := &entity.PendingRegistration{Email: contact.Email, Phone: contact.Phone}
			if err := apply(row); err != nil {
				return nil, nil, false, err
			}
			if err := repo.insert(ctx, row); err != nil {
				if errors.Is(err, repository.ErrPendingContactMismatch) {
					lastErr = err

					continue
				}

				return nil, nil, false, err
			}

			return row, nil, true, nil
		case err != nil:
			return nil, nil, false, err
		}

		previous := existing.Clone()
		if existing.Email == "" {
			existing.Email = contact.Email
		}
		if existing.Phone == "" {
			existing.Phone = contact.Phone
		}
		if err := apply(existing); err != nil {
			return nil, nil, false, err
		}
		if err := repo.Save(ctx, existing); err != nil {
			return nil, nil, false, err
		}

		return existing, previous, false, nil
	}

	return nil, nil, false, lastErr
}

func (repo *pendingRegistrationRepository) insert(ctx context.Context, row *entity.PendingRegistration) error {
	rowM := fromPendingRegistrationDomain(row)

	if err := repo.db.WithContext(ctx).Create(rowM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrPendingContactMismatch)
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create pending registration")
	}

	row.ID = rowM.ID
	row.CreatedAt = rowM.CreatedAt
	row.UpdatedAt = rowM.UpdatedAt

	return nil
}

// FindByContact loads the row owning the present contacts. Contacts split
// across two rows, or a stored contact that differs, are a mismatch.
func (repo *pendingRegistrationRepository) FindByContact(ctx context.Context, contact entity.Contact) (*entity.PendingRegistration, error) {
	contact = contact.Normalized()

	query := repo.db.WithContext(ctx).Model(&model.PendingRegistrationModel{})
	switch {
	case contact.Email != "" && contact.Phone != "":
		query = query.Where("email = ? OR phone = ?", contact.Email, contact.Phone)
	case contact.Email != "":
		query = query.Where("email = ?", contact.Email)
	case contact.Phone != "":
		query = query.Where("phone = ?", contact.Phone)
	default:
		return nil, repository.ErrPendingRegistrationNotFound
	}

	var rows []*model.PendingRegistrationModel
	if err := query.Limit(2).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find pending registration")
	}

	switch len(rows) {
	case 0:
		return nil, repository.ErrPendingRegistrationNotFound
	case 1:
	default:
		return nil, errors.WithStack(repository.ErrPendingContactMismatch)
	}

	row := toPendingRegistrationDomain(rows[0])
	if row.Contact().Conflicts(contact) {
		return nil, errors.WithStack(repository.ErrPendingContactMismatch)
	}

	return row, nil
}

func (repo *pendingRegistrationRepository) FindByVerificationTokenHash(ctx context.Context, tokenHash string) (*entity.PendingRegistration, error) {
	var rowM model.PendingRegistrationModel
	if err := repo.db.WithContext(ctx).Where("verification_token_hash = ?", tokenHash).First(&rowM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPendingRegistrationNotFound
		}

		return nil, errors.Wrap(err, "failed to find pending registration by token")
	}

	return toPendingRegistrationDomain(&rowM), nil
}

// Save writes every mutable field of an existing row.
func (repo *pendingRegistrationRepository) Save(ctx context.Context, row *entity.PendingRegistration) error {
	rowM := fromPendingRegistrationDomain(row)

	result := repo.db.WithContext(ctx).
		Model(rowM).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(rowM)
	if err := result.Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrPendingContactMismatch)
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update pending registration")
	}
	if result.RowsAffected == 0 {
		return repository.ErrPendingRegistrationNotFound
	}

	row.UpdatedAt = rowM.UpdatedAt

	return nil
}

// MarkVerified sets verified and the optional completion token.
func (repo *pendingRegistrationRepository) MarkVerified(
	ctx context.Context,
	row *entity.PendingRegistration,
	tokenHash string,
	tokenExpiresAt *time.Time,
) error {
	row.MarkVerified(tokenHash, tokenExpiresAt)

	result := repo.db.WithContext(ctx).
		Model(&model.PendingRegistrationModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"verified":                      true,
			"verification_token_hash":       optional(tokenHash),
			"verification_token_expires_at": utcPtr(tokenExpiresAt),
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to mark pending registration verified")
	}
	if result.RowsAffected == 0 {
		return repository.ErrPendingRegistrationNotFound
	}

	return nil
}

// Clear destroys the row. Clearing an absent row is not an error.
func (repo *pendingRegistrationRepository) Clear(ctx context.Context, id uuid.UUID) error {
	if err := repo.db.WithContext(ctx).Delete(&model.PendingRegistrationModel{}, "id = ?", id).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete pending registration")
	}

	return nil
}

// FindStale returns rows whose OTP and verification windows both ended before the cutoff.
func (repo *pendingRegistrationRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*entity.PendingRegistration, error) {
	cutoff = cutoff.UTC()

	var rows []*model.PendingRegistrationModel
	err := repo.db.WithContext(ctx).
		Where("otp_expires_at < ?", cutoff).
		Where("verification_token_expires_at IS NULL OR verification_token_expires_at < ?", cutoff).
		Order("otp_expires_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find stale pending registrations")
	}

	result := make([]*entity.PendingRegistration, 0, len(rows))
	for _, rowM := range rows {
		result = append(result, toPendingRegistrationDomain(rowM))
	}

	return result, nil
}

func toPendingRegistrationDomain(data *model.PendingRegistrationModel) *entity.PendingRegistration {
	return &entity.PendingRegistration{
		ID:                         data.ID,
		Email:                      deref(data.Email),
		Phone:                      deref(data.Phone),
		Role:                       entity.Role(data.Role),
		FullName:                   data.FullName,
		Occupation:                 data.Occupation,
		ReferenceID:                data.ReferenceID,
		IDImageRefs:                []string(data.IDImageRefs),
		PasswordHash:               data.PasswordHash,
		TermsAccepted:              data.TermsAccepted,
		OtpHash:                    data.OtpHash,
		OtpExpiresAt:               data.OtpExpiresAt,
		Verified:                   data.Verified,
		VerificationTokenHash:      deref(data.VerificationTokenHash),
		VerificationTokenExpiresAt: data.VerificationTokenExpiresAt,
		CreatedAt:                  data.CreatedAt,
		UpdatedAt:                  data.UpdatedAt,
	}
}

func fromPendingRegistrationDomain(data *entity.PendingRegistration) *model.PendingRegistrationModel {
	role := data.Role
	if role == "" {
		role = entity.RoleUser
	}

	return &model.PendingRegistrationModel{
		ID:                         data.ID,
		Email:                      optional(entity.NewContact(data.Email, "").Email),
		Phone:                      optional(data.Phone),
		Role:                       string(role),
		FullName:                   data.FullName,
		Occupation:                 data.Occupation,
		ReferenceID:                data.ReferenceID,
		IDImageRefs:                jsonStrings(data.IDImageRefs),
		PasswordHash:               data.PasswordHash,
		TermsAccepted:              data.TermsAccepted,
		OtpHash:                    data.OtpHash,
		OtpExpiresAt:               data.OtpExpiresAt.UTC(),
		Verified:                   data.Verified,
		VerificationTokenHash:      optional(data.VerificationTokenHash),
		VerificationTokenExpiresAt: utcPtr(data.VerificationTokenExpiresAt),
		CreatedAt:                  data.CreatedAt,
		UpdatedAt:                  data.UpdatedAt,
	}
}
