package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the slice of the 'users' table the auth core touches.
// The identity subsystem owns the rest of the row; this model deliberately
// maps only credential and two-factor columns.
type UserModel struct {
	ID                     uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	TenantID               uuid.UUID `gorm:"type:uuid;not null;index"`
	Email                  string    `gorm:"type:varchar(255);unique;not null"`
	Name                   string    `gorm:"type:varchar(100)"`
	Role                   string    `gorm:"type:varchar(50);not null"`
	PasswordHash           string    `gorm:"type:varchar(255);not null"`
	TwoFactorSecret        string    `gorm:"type:varchar(64)"`
	TwoFactorPendingSecret string    `gorm:"type:varchar(64)"`
	TwoFactorEnabled       bool      `gorm:"not null;default:false"`
	CreatedAt              time.Time
	UpdatedAt              time.Time

	Sessions    []AuthSessionModel        `gorm:"foreignKey:UserID"`
	ResetTokens []PasswordResetTokenModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
