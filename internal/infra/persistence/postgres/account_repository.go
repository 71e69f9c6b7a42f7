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
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// accountRepository implements the domain.AccountRepository interface using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
// It returns the repository as a domain.AccountRepository interface, adhering to dependency inversion.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// FindByID retrieves a single account by its unique ID.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.first(ctx, "failed to find account by id", "id = ?", id)
}

// FindByEmail retrieves an account by its lower-cased email.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.first(ctx, "failed to find account by email", "email = ?", entity.NewContact(email, "").Email)
}

// FindByPhone retrieves an account by its exact phone.
func (repo *accountRepository) FindByPhone(ctx context.Context, phone string) (*entity.Account, error) {
	return repo.first(ctx, "failed to find account by phone", "phone = ?", phone)
}

// FindByContact retrieves the account that occupies any present contact.
func (repo *accountRepository) FindByContact(ctx context.Context, contact entity.Contact) (*entity.Account, error) {
	contact = contact.Normalized()

	switch {
	case contact.Email != "" && contact.Phone != "":
		return repo.first(ctx, "failed to find account by contact", "email = ? OR phone = ?", contact.Email, contact.Phone)
	case contact.Email != "":
		return repo.FindByEmail(ctx, contact.Email)
	case contact.Phone != "":
		return repo.FindByPhone(ctx, contact.Phone)
	default:
		return nil, repository.ErrAccountNotFound
	}
}

// FindByFederatedID retrieves an account by external provider and subject.
func (repo *accountRepository) FindByFederatedID(ctx context.Context, provider entity.AuthProvider, subject string) (*entity.Account, error) {
	return repo.first(ctx, "failed to find account by federated id",
		"auth_provider = ? AND provider_subject = ?", string(provider), subject)
}

// FindByResetTokenHash retrieves the account holding an unexpired reset token fingerprint.
func (repo *accountRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*entity.Account, error) {
	return repo.first(ctx, "failed to find account by reset token",
		"reset_token_hash = ? AND reset_token_expires_at > ?", tokenHash, time.Now().UTC())
}

func (repo *accountRepository) first(ctx context.Context, msg string, query string, args ...any) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).Where(query, args...).Order("created_at").First(&accountM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, msg)
	}

	return toAccountDomain(&accountM), nil
}

// Create persists a new account. The unique indexes on email, phone and
// federated id decide races between parallel finalizations.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrAccountContactTaken)
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInvalidInput.WrapMessage("missing required account information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create account")
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// Update writes the columns behind the listed fields and nothing else.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account, fields ...repository.AccountField) error {
	accountM := fromAccountDomain(account)

	columns := make(map[string]any, len(fields)*2)
	for _, field := range fields {
		switch field {
		case repository.AccountFieldPassword:
			columns["password_hash"] = accountM.PasswordHash
		case repository.AccountFieldResetOtp:
			columns["reset_otp_hash"] = accountM.ResetOtpHash
			columns["reset_otp_expires_at"] = accountM.ResetOtpExpiresAt
		case repository.AccountFieldResetToken:
			columns["reset_token_hash"] = accountM.ResetTokenHash
			columns["reset_token_expires_at"] = accountM.ResetTokenExpiresAt
		case repository.AccountFieldLastLogin:
			columns["last_login_at"] = accountM.LastLoginAt
		case repository.AccountFieldActive:
			columns["active"] = accountM.Active
		default:
			return errors.Errorf("unknown account field %q", field)
		}
	}
	if len(columns) == 0 {
		return errors.New("no account fields to update")
	}

	updatedAt := time.Now().UTC()
	columns["updated_at"] = updatedAt

	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", account.ID).
		Updates(columns)
	if err := result.Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to update account")
	}
	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	account.UpdatedAt = updatedAt

	return nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	account := &entity.Account{
		ID:                  data.ID,
		FullName:            data.FullName,
		Email:               deref(data.Email),
		Phone:               deref(data.Phone),
		PasswordHash:        deref(data.PasswordHash),
		AuthProvider:        entity.AuthProvider(data.AuthProvider),
		ProviderSubject:     deref(data.ProviderSubject),
		Role:                entity.Role(data.Role),
		Active:              data.Active,
		TermsAccepted:       data.TermsAccepted,
		ProfileImageRef:     data.ProfileImageRef,
		ResetOtpHash:        deref(data.ResetOtpHash),
		ResetOtpExpiresAt:   data.ResetOtpExpiresAt,
		ResetTokenHash:      deref(data.ResetTokenHash),
		ResetTokenExpiresAt: data.ResetTokenExpiresAt,
		LastLoginAt:         data.LastLoginAt,
		CreatedAt:           data.CreatedAt,
		UpdatedAt:           data.UpdatedAt,
	}

	if data.Location != nil {
		if point, err := wkt.UnmarshalPoint(*data.Location); err == nil {
			account.Location = &entity.Location{Point: point, Address: data.Address}
		}
	} else if data.Address != "" {
		account.Location = &entity.Location{Address: data.Address}
	}

	return account
}

func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	accountM := &model.AccountModel{
		ID:                  data.ID,
		FullName:            data.FullName,
		Email:               optional(entity.NewContact(data.Email, "").Email),
		Phone:               optional(data.Phone),
		PasswordHash:        optional(data.PasswordHash),
		AuthProvider:        string(data.AuthProvider),
		ProviderSubject:     optional(data.ProviderSubject),
		Role:                string(data.Role),
		Active:              data.Active,
		TermsAccepted:       data.TermsAccepted,
		ProfileImageRef:     data.ProfileImageRef,
		ResetOtpHash:        optional(data.ResetOtpHash),
		ResetOtpExpiresAt:   utcPtr(data.ResetOtpExpiresAt),
		ResetTokenHash:      optional(data.ResetTokenHash),
		ResetTokenExpiresAt: utcPtr(data.ResetTokenExpiresAt),
		LastLoginAt:         utcPtr(data.LastLoginAt),
		CreatedAt:           data.CreatedAt,
		UpdatedAt:           data.UpdatedAt,
	}

	if data.Location != nil {
		accountM.Address = data.Location.Address
		if data.Location.Point != (orb.Point{}) {
			accountM.Location = optional(wkt.MarshalString(data.Location.Point))
		}
	}

	return accountM
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()

	return &utc
}
