package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists catalog products.
type Repository struct {
	repo.Base
}

// NewRepository returns a product repository bound to db.
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

// FindByID loads a product by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.First[models.Product](r.DB(ctx), "id = ?", id)
}

// CreateProduct inserts the product and returns it with generated fields set.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct saves every column of product.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteOwned removes the product when ownerID owns it and reports whether a row went away.
func (r *Repository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List returns one page of products, newest first, and the total row count.
// A nil ownerID lists the whole catalog.
func (r *Repository) List(ctx context.Context, ownerID *uuid.UUID, params pagination.Params) ([]models.Product, int64, error) {
	query := r.DB(ctx).Model(&models.Product{})
	if ownerID != nil {
		query = query.Where("user_id = ?", *ownerID)
	}

	var products []models.Product
	total, err := repo.Paginate(query.Order("created_at DESC").Order("id ASC"), params, &products)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
