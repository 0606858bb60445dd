package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists cart lines.
type Repository struct {
	repo.Base
}

// NewRepository returns a cart repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// ListWithProducts returns the user's cart lines with their products preloaded,
// oldest first.
func (r *Repository) ListWithProducts(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddOne increments the line for productID, creating it with quantity 1.
func (r *Repository) AddOne(ctx context.Context, userID, productID uuid.UUID) error {
	item := &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + 1"),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(item).Error
}

// Find loads a single cart line.
func (r *Repository) Find(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	return repo.First[models.CartItem](r.DB(ctx).Where("user_id = ? AND product_id = ?", userID, productID))
}

// SetQuantity overwrites the quantity of an existing line.
func (r *Repository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return r.DB(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", quantity).Error
}

// Delete removes one line from the user's cart.
func (r *Repository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	return r.DB(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

// Clear empties the user's cart.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.DB(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// RemoveProduct drops productID from every cart.
func (r *Repository) RemoveProduct(ctx context.Context, productID uuid.UUID) error {
	return r.DB(ctx).
		Where("product_id = ?", productID).
		Delete(&models.CartItem{}).Error
}
