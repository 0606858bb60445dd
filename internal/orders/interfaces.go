package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	MarkPaid(ctx context.Context, sessionID string, paidAt time.Time) (bool, error)
}

// SessionRef identifies a completed hosted checkout session as reported by the provider.
type SessionRef struct {
	ID                string
	ClientReferenceID string
	CustomerEmail     string
	PaymentStatus     string
}

// Settled reports whether the provider already captured the payment.
func (r SessionRef) Settled() bool {
	return r.PaymentStatus == "paid" || r.PaymentStatus == "no_payment_required"
}

type orderNotifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order)
}
