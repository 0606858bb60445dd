package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the ledger entry produced from a completed checkout session. Only
// Status (and PaidAt alongside it) changes after creation.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	UserEmail         string            `gorm:"column:user_email;not null"`
	ExternalSessionID string            `gorm:"column:external_session_id;type:text;not null;uniqueIndex:orders_external_session_id_key"`
	Currency          enums.Currency    `gorm:"column:currency;type:text;not null;default:'usd'"`
	LineItems         types.LineItems   `gorm:"column:line_items;type:jsonb;serializer:json;not null"`
	TotalCents        int64             `gorm:"column:total_cents;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'awaiting_payment'"`
	PaidAt            *time.Time        `gorm:"column:paid_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
