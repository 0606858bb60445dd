package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a shopper or catalog administrator.
type User struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email               string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	ResetTokenHash      *string    `gorm:"column:reset_token_hash"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at"`
	PendingSessionID    *string    `gorm:"column:pending_session_id"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
