package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdministratorModel mirrors the 'administrators' table.
type AdministratorModel struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	FullName     string                      `gorm:"type:varchar(100);not null"`
	Email        string                      `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string                      `gorm:"type:varchar(255);not null"`
	Active       bool                        `gorm:"not null"`
	Role         string                      `gorm:"type:varchar(20);not null"`
	Permissions  datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedBy    *uuid.UUID                  `gorm:"type:uuid"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (AdministratorModel) TableName() string {
	return "administrators"
}

func (m *AdministratorModel) BeforeCreate(_ *gorm.DB) error {
	return assignID(&m.ID)
}
