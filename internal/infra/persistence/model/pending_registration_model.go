package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PendingRegistrationModel mirrors the 'pending_registrations' table. Each
// present contact is unique so a contact namespace has at most one owner.
type PendingRegistrationModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email *string   `gorm:"type:varchar(255);uniqueIndex:idx_pending_registrations_email"`
	Phone *string   `gorm:"type:varchar(32);uniqueIndex:idx_pending_registrations_phone"`
	Role  string    `gorm:"type:varchar(20);not null"`

	FullName      string                      `gorm:"type:varchar(100)"`
	Occupation    string                      `gorm:"type:varchar(100)"`
	ReferenceID   string                      `gorm:"type:varchar(100)"`
	IDImageRefs   datatypes.JSONSlice[string] `gorm:"not null"`
	PasswordHash  string                      `gorm:"type:varchar(255)"`
	TermsAccepted bool                        `gorm:"not null"`

	OtpHash      string    `gorm:"type:varchar(64);not null"`
	OtpExpiresAt time.Time `gorm:"not null;index"`
	Verified     bool      `gorm:"not null"`

	VerificationTokenHash      *string `gorm:"type:varchar(64);uniqueIndex"`
	VerificationTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (PendingRegistrationModel) TableName() string {
	return "pending_registrations"
}

func (m *PendingRegistrationModel) BeforeCreate(_ *gorm.DB) error {
	return assignID(&m.ID)
}
