package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes cart reads and mutations.
type Service interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (Snapshot, error)
	Remove(ctx context.Context, userID, productID uuid.UUID, quantity *int) (Snapshot, error)
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	products productLookup
	now      func() time.Time
}

// NewService builds the cart service.
func NewService(repo *Repository, dbClient *db.Client, products productLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		products: products,
		now:      time.Now,
	}, nil
}

func (s *service) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	rows, err := s.repo.ListWithProducts(ctx, userID)
	if err != nil {
		return Snapshot{}, pkgerrors.Persistence(err, "load cart")
	}
	return NewSnapshot(userID, rows, s.now().UTC()), nil
}

// Add puts one more unit of productID in the cart.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (Snapshot, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if db.IsNotFound(err) {
			return Snapshot{}, pkgerrors.NotFound("product")
		}
		return Snapshot{}, pkgerrors.Persistence(err, "load product")
	}
	if err := s.repo.AddOne(ctx, userID, productID); err != nil {
		return Snapshot{}, pkgerrors.Persistence(err, "add cart item")
	}
	return s.Snapshot(ctx, userID)
}

// Remove takes quantity units of productID out of the cart. A nil quantity, or
// one that reaches zero, removes the line.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID, quantity *int) (Snapshot, error) {
	if quantity != nil && *quantity < 1 {
		return Snapshot{}, pkgerrors.Validation("quantity", "quantity must be at least 1")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		item, err := txRepo.Find(ctx, userID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound("cart item")
			}
			return pkgerrors.Persistence(err, "load cart item")
		}
		if quantity == nil || item.Quantity <= *quantity {
			if err := txRepo.Delete(ctx, userID, productID); err != nil {
				return pkgerrors.Persistence(err, "delete cart item")
			}
			return nil
		}
		if err := txRepo.SetQuantity(ctx, userID, productID, item.Quantity-*quantity); err != nil {
			return pkgerrors.Persistence(err, "update cart item")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return Snapshot{}, err
		}
		return Snapshot{}, pkgerrors.Persistence(err, "remove cart item")
	}
	return s.Snapshot(ctx, userID)
}
