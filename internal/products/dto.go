package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Price       string    `json:"price"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductListResult is one catalog page.
type ProductListResult struct {
	Products []ProductDTO `json:"products"`
	pagination.Page
}

// NewProductDTO maps a product row to its API shape.
func NewProductDTO(product *models.Product) ProductDTO {
	return ProductDTO{
		ID:          product.ID,
		OwnerID:     product.UserID,
		Title:       product.Title,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		Price:       types.FormatCents(product.PriceCents),
		ImageURL:    "/api/v1/products/" + product.ID.String() + "/image",
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func newListResult(products []models.Product, params pagination.Params, total int64) *ProductListResult {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, NewProductDTO(&products[i]))
	}
	return &ProductListResult{
		Products: out,
		Page:     pagination.NewPage(params, total),
	}
}
