package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Snapshot is a read-only view of a cart at TakenAt. Lines carry copies of the
// product fields so later catalog edits do not leak into it.
type Snapshot struct {
	UserID  uuid.UUID
	Lines   types.LineItems
	TakenAt time.Time
}

// Empty reports whether the cart has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// TotalCents is the display total in minor units.
func (s Snapshot) TotalCents() int64 {
	return s.Lines.TotalCents()
}

// NewSnapshot freezes cart rows. Rows whose product no longer exists are dropped.
func NewSnapshot(userID uuid.UUID, rows []models.CartItem, takenAt time.Time) Snapshot {
	lines := make(types.LineItems, 0, len(rows))
	for _, row := range rows {
		if row.Product == nil || row.Quantity < 1 {
			continue
		}
		lines = append(lines, types.LineItem{
			ProductID:   row.ProductID,
			Title:       row.Product.Title,
			Description: row.Product.Description,
			PriceCents:  row.Product.PriceCents,
			Quantity:    row.Quantity,
		})
	}
	return Snapshot{UserID: userID, Lines: lines, TakenAt: takenAt}
}
