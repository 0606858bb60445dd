package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is the order payload returned to the purchaser.
type OrderDTO struct {
	ID                uuid.UUID       `json:"id"`
	ExternalSessionID string          `json:"session_id"`
	Status            string          `json:"status"`
	Currency          string          `json:"currency"`
	Items             types.LineItems `json:"items"`
	TotalCents        int64           `json:"total_cents"`
	TotalSum          string          `json:"total_sum"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewOrderDTO maps an order row to its API shape.
func NewOrderDTO(order *models.Order) OrderDTO {
	return OrderDTO{
		ID:                order.ID,
		ExternalSessionID: order.ExternalSessionID,
		Status:            order.Status.String(),
		Currency:          order.Currency.String(),
		Items:             order.LineItems.Clone(),
		TotalCents:        order.TotalCents,
		TotalSum:          types.FormatCents(order.TotalCents),
		PaidAt:            order.PaidAt,
		CreatedAt:         order.CreatedAt,
	}
}
