package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthSessionModel mirrors the 'auth_sessions' table. One row per issued
// refresh token; rotation chains rows via replaced_by.
type AuthSessionModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash     string    `gorm:"type:varchar(255);unique;not null"`
	CreatedAt     time.Time
	LastUsedAt    *time.Time
	RevokedAt     *time.Time `gorm:"index"`
	RevokedReason *string    `gorm:"type:varchar(50)"`
	ReplacedBy    *uuid.UUID `gorm:"type:uuid"`
	ExpiresAt     time.Time  `gorm:"not null;index"`
	UserAgent     string     `gorm:"type:varchar(512)"`
	IP            string     `gorm:"type:varchar(64)"`
}

// TableName explicitly sets the table name for GORM.
func (AuthSessionModel) TableName() string {
	return "auth_sessions"
}
