package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// LineDTO is the API shape of one cart line.
type LineDTO struct {
	ProductID     uuid.UUID `json:"product_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PriceCents    int64     `json:"price_cents"`
	Quantity      int       `json:"quantity"`
	SubtotalCents int64     `json:"subtotal_cents"`
}

// CartDTO is the API shape of a cart or checkout summary.
type CartDTO struct {
	Items      []LineDTO `json:"items"`
	TotalCents int64     `json:"total_cents"`
	TotalSum   string    `json:"total_sum"`
}

// NewCartDTO renders a snapshot for API responses.
func NewCartDTO(s Snapshot) CartDTO {
	items := make([]LineDTO, 0, len(s.Lines))
	for _, line := range s.Lines {
		items = append(items, newLineDTO(line))
	}
	return CartDTO{
		Items:      items,
		TotalCents: s.TotalCents(),
		TotalSum:   types.FormatCents(s.TotalCents()),
	}
}

func newLineDTO(line types.LineItem) LineDTO {
	return LineDTO{
		ProductID:     line.ProductID,
		Title:         line.Title,
		Description:   line.Description,
		PriceCents:    line.PriceCents,
		Quantity:      line.Quantity,
		SubtotalCents: line.SubtotalCents(),
	}
}
