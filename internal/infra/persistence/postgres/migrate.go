package postgres

import (
	"marketplace/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Models lists every table owned by the identity core.
func Models() []any {
	return []any{
		&model.AccountModel{},
		&model.ProviderProfileModel{},
		&model.AdministratorModel{},
		&model.RefreshTokenModel{},
		&model.PendingRegistrationModel{},
	}
}

// Migrate creates or updates the identity tables and their unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.Wrap(err, "auto migrate identity tables")
	}

	return nil
}
