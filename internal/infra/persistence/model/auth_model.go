package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table. Owners of both
// principal kinds share the table, so there is no foreign key on OwnerID.
type RefreshTokenModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerKind  string    `gorm:"type:varchar(20);not null;index:idx_refresh_tokens_owner"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_refresh_tokens_owner"`
	TokenHash  string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	Revoked    bool      `gorm:"not null"`
	UserAgent  string    `gorm:"type:varchar(512)"`
	IPAddress  string    `gorm:"type:varchar(64)"`
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

func (m *RefreshTokenModel) BeforeCreate(_ *gorm.DB) error {
	return assignID(&m.ID)
}
