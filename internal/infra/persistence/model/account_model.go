package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccountModel mirrors the 'accounts' table. Email and phone are nullable so
// their unique indexes only cover present values.
type AccountModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName        string    `gorm:"type:varchar(100);not null"`
	Email           *string   `gorm:"type:varchar(255);uniqueIndex:idx_accounts_email"`
	Phone           *string   `gorm:"type:varchar(32);uniqueIndex:idx_accounts_phone"`
	PasswordHash    *string   `gorm:"type:varchar(255)"`
	AuthProvider    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_accounts_federated_id"`
	ProviderSubject *string   `gorm:"type:varchar(255);uniqueIndex:idx_accounts_federated_id"`
	Role            string    `gorm:"type:varchar(20);not null;index"`
	Active          bool      `gorm:"not null"`
	TermsAccepted   bool      `gorm:"not null"`
	// Location is stored as WKT, e.g. POINT(121.5 25.03)
	Location        *string `gorm:"type:text"`
	Address         string  `gorm:"type:text"`
	ProfileImageRef string  `gorm:"type:varchar(512)"`

	ResetOtpHash        *string    `gorm:"type:varchar(64)"`
	ResetOtpExpiresAt   *time.Time
	ResetTokenHash      *string `gorm:"type:varchar(64);index"`
	ResetTokenExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	ProviderProfile *ProviderProfileModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

// BeforeCreate assigns a time-ordered UUID when none is set.
func (m *AccountModel) BeforeCreate(_ *gorm.DB) error {
	return assignID(&m.ID)
}

// ProviderProfileModel mirrors the 'provider_profiles' table. AccountID references accounts.id.
type ProviderProfileModel struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	AccountID          uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex"`
	Occupation         string                      `gorm:"type:varchar(100)"`
	ReferenceID        string                      `gorm:"type:varchar(100)"`
	IDImageRefs        datatypes.JSONSlice[string] `gorm:"not null"`
	VerificationStatus string                      `gorm:"type:varchar(20);not null;index"`
	RejectionReason    string                      `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName explicitly sets the table name for GORM.
func (ProviderProfileModel) TableName() string {
	return "provider_profiles"
}

func (m *ProviderProfileModel) BeforeCreate(_ *gorm.DB) error {
	return assignID(&m.ID)
}

func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	generated, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = generated

	return nil
}
