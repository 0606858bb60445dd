package types

import "github.com/google/uuid"

// LineItem is a frozen copy of a product's display fields and price taken when
// a checkout starts. It never follows later catalog edits.
type LineItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Quantity    int       `json:"quantity"`
}

// SubtotalCents returns price times quantity in minor units.
func (l LineItem) SubtotalCents() int64 {
	return l.PriceCents * int64(l.Quantity)
}

type LineItems []LineItem

// TotalCents sums every line subtotal.
func (items LineItems) TotalCents() int64 {
	var total int64
	for _, item := range items {
		total += item.SubtotalCents()
	}
	return total
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot.
func (items LineItems) Clone() LineItems {
	if items == nil {
		return nil
	}
	out := make(LineItems, len(items))
	copy(out, items)
	return out
}
