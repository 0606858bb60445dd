package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	blob "github.com/angelmondragon/storefront-backend/pkg/storage"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service exposes catalog browsing and admin product management.
type Service interface {
	ListProducts(ctx context.Context, page int) (*ProductListResult, error)
	ListOwnedProducts(ctx context.Context, ownerID uuid.UUID, page int) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	OpenImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error)
	CreateProduct(ctx context.Context, ownerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, ownerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, ownerID, productID uuid.UUID) error
}

// CreateProductInput holds the admin form for a new product.
type CreateProductInput struct {
	Title       string
	Price       string
	Description string
	Image       *ImageUpload
}

// UpdateProductInput holds the admin form for an edit. A nil Image keeps the current one.
type UpdateProductInput struct {
	Title       string
	Price       string
	Description string
	Image       *ImageUpload
}

type service struct {
	repo         *Repository
	carts        *cart.Repository
	dbClient     *db.Client
	blob         blob.Blob
	logg         *logger.Logger
	itemsPerPage int
}

// NewService constructs a product service instance.
func NewService(repo *Repository, carts *cart.Repository, dbClient *db.Client, store blob.Blob, logg *logger.Logger, itemsPerPage int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if itemsPerPage <= 0 {
		itemsPerPage = pagination.DefaultPerPage
	}
	return &service{
		repo:         repo,
		carts:        carts,
		dbClient:     dbClient,
		blob:         store,
		logg:         logg,
		itemsPerPage: itemsPerPage,
	}, nil
}

func (s *service) ListProducts(ctx context.Context, page int) (*ProductListResult, error) {
	return s.list(ctx, nil, page)
}

func (s *service) ListOwnedProducts(ctx context.Context, ownerID uuid.UUID, page int) (*ProductListResult, error) {
	return s.list(ctx, &ownerID, page)
}

func (s *service) list(ctx context.Context, ownerID *uuid.UUID, page int) (*ProductListResult, error) {
	params := pagination.Params{Page: page, PerPage: s.itemsPerPage}.Normalize()
	products, total, err := s.repo.List(ctx, ownerID, params)
	if err != nil {
		return nil, pkgerrors.Persistence(err, "list products")
	}
	return newListResult(products, params, total), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

// OpenImage returns the stored image of a product and its content type.
func (s *service) OpenImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.blob.Open(ctx, product.ImageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", pkgerrors.NotFound("image")
		}
		return nil, "", pkgerrors.Upstream(err, "open image")
	}
	return rc, imageContentType(product.ImageKey), nil
}

// CreateProduct validates the form, stores the image and inserts the row.
func (s *service) CreateProduct(ctx context.Context, ownerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	title, description, priceCents, err := normalizeFields(input.Title, input.Description, input.Price)
	if err != nil {
		return nil, err
	}
	if input.Image == nil {
		return nil, pkgerrors.Validation("image", "attached file is not an image (png, jpg, jpeg)")
	}
	imageType, err := detectImageType(input.Image.Data)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       title,
		Description: description,
		PriceCents:  priceCents,
	}
	product.ImageKey = blob.ProductImageKey(product.ID.String(), imageType.Extension())

	if err := s.storeImage(ctx, product.ImageKey, imageType, input.Image.Data); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if cleanupErr := s.deleteImage(ctx, product.ImageKey); cleanupErr != nil {
			s.logg.Warn(ctx, cleanupErr.Error())
		}
		return nil, pkgerrors.Persistence(err, "insert product")
	}

	dto := NewProductDTO(created)
	return &dto, nil
}

// UpdateProduct edits an owned product. A new image replaces the stored one.
func (s *service) UpdateProduct(ctx context.Context, ownerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	title, description, priceCents, err := normalizeFields(input.Title, input.Description, input.Price)
	if err != nil {
		return nil, err
	}

	product, err := s.loadOwned(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}

	oldImageKey := ""
	if input.Image != nil {
		imageType, err := detectImageType(input.Image.Data)
		if err != nil {
			return nil, err
		}
		newKey := blob.ProductImageKey(product.ID.String(), imageType.Extension())
		if err := s.storeImage(ctx, newKey, imageType, input.Image.Data); err != nil {
			return nil, err
		}
		if newKey != product.ImageKey {
			oldImageKey = product.ImageKey
		}
		product.ImageKey = newKey
	}

	product.Title = title
	product.Description = description
	product.PriceCents = priceCents
	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Persistence(err, "update product")
	}

	if err := s.deleteImage(ctx, oldImageKey); err != nil {
		s.logg.Warn(ctx, err.Error())
	}

	dto := NewProductDTO(updated)
	return &dto, nil
}

// DeleteProduct removes the image blob and the product row (with every cart
// line referencing it) concurrently. Both run even if one fails.
func (s *service) DeleteProduct(ctx context.Context, ownerID, productID uuid.UUID) error {
	product, err := s.loadOwned(ctx, ownerID, productID)
	if err != nil {
		return err
	}

	var (
		wg       sync.WaitGroup
		imageErr error
		rowErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		imageErr = s.deleteImage(ctx, product.ImageKey)
	}()
	go func() {
		defer wg.Done()
		rowErr = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.carts.WithTx(tx).RemoveProduct(ctx, product.ID); err != nil {
				return fmt.Errorf("remove product from carts: %w", err)
			}
			deleted, err := s.repo.WithTx(tx).DeleteOwned(ctx, product.ID, ownerID)
			if err != nil {
				return fmt.Errorf("delete product: %w", err)
			}
			if !deleted {
				return pkgerrors.NotFound("product")
			}
			return nil
		})
	}()
	wg.Wait()

	if rowErr != nil && pkgerrors.Is(rowErr, pkgerrors.CodeNotFound) {
		return rowErr
	}
	if err := multierr.Combine(imageErr, rowErr); err != nil {
		return pkgerrors.Persistence(err, "deleting product failed")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("product")
		}
		return nil, pkgerrors.Persistence(err, "load product")
	}
	return product, nil
}

func (s *service) loadOwned(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.UserID != ownerID {
		return nil, pkgerrors.Forbidden("product belongs to another admin")
	}
	return product, nil
}

// normalizeFields trims the form text and converts the price to cents.
// Length rules are enforced where the form is bound.
func normalizeFields(title, description, price string) (string, string, int64, error) {
	priceCents, err := types.ParsePriceCents(strings.TrimSpace(price))
	if err != nil {
		return "", "", 0, pkgerrors.Validation("price", err.Error())
	}
	return strings.TrimSpace(title), strings.TrimSpace(description), priceCents, nil
}
