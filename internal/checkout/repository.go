package checkout

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// SessionRepository persists the frozen cart snapshot sent with each hosted session.
type SessionRepository struct {
	repo.Base
}

// NewSessionRepository returns a repository bound to db.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	if tx == nil {
		return r
	}
	return NewSessionRepository(tx)
}

// Create inserts a checkout session snapshot.
func (r *SessionRepository) Create(ctx context.Context, session *models.CheckoutSession) error {
	return r.DB(ctx).Create(session).Error
}

// FindByID loads a session by its provider id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.CheckoutSession, error) {
	return repo.First[models.CheckoutSession](r.DB(ctx), "id = ?", id)
}

// UpdateStatus moves the session to status when it is currently in from.
// Returns false when no row matched.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, from, to enums.CheckoutSessionStatus) (bool, error) {
	res := r.DB(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCompleted records that the session produced an order. It applies
// from any other status: a session swept as expired may still complete
// upstream.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND status <> ?", id, enums.CheckoutSessionStatusCompleted).
		Update("status", enums.CheckoutSessionStatusCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindOpenBefore lists sessions still open that were created before cutoff,
// oldest first.
func (r *SessionRepository) FindOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutSession, error) {
	var sessions []models.CheckoutSession
	query := r.DB(ctx).
		Where("status = ? AND created_at < ?", enums.CheckoutSessionStatusOpen, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
