package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry owned by the admin who created it.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;not null"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	ImageKey    string    `gorm:"column:image_key;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
