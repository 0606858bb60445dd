package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CheckoutSession records the cart snapshot sent to the payment provider for a
// hosted session. Items are frozen at creation and are the source for the order.
type CheckoutSession struct {
	ID         string                      `gorm:"column:id;type:text;primaryKey"`
	UserID     uuid.UUID                   `gorm:"column:user_id;type:uuid;not null"`
	UserEmail  string                      `gorm:"column:user_email;not null"`
	Currency   enums.Currency              `gorm:"column:currency;type:text;not null;default:'usd'"`
	Items      types.LineItems             `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TotalCents int64                       `gorm:"column:total_cents;not null"`
	Status     enums.CheckoutSessionStatus `gorm:"column:status;type:text;not null;default:'open'"`
	URL        string                      `gorm:"column:url;not null"`
	CreatedAt  time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
