package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartAddRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type cartRemoveRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

// cartAction resolves the caller, runs op and answers with the resulting cart.
func cartAction(r *http.Request, w http.ResponseWriter, svc cartsvc.Service, op func(uuid.UUID) (cartsvc.Snapshot, error)) error {
	if svc == nil {
		return unavailable("cart")
	}
	userID, err := requireUser(r)
	if err != nil {
		return err
	}
	snapshot, err := op(userID)
	if err != nil {
		return err
	}
	responses.WriteSuccess(w, cartsvc.NewCartDTO(snapshot))
	return nil
}

func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		return cartAction(r, w, svc, func(userID uuid.UUID) (cartsvc.Snapshot, error) {
			return svc.Snapshot(r.Context(), userID)
		})
	})
}

// CartAdd puts one more unit of a product in the caller's cart.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body cartAddRequest) error {
		return cartAction(r, w, svc, func(userID uuid.UUID) (cartsvc.Snapshot, error) {
			return svc.Add(r.Context(), userID, body.ProductID)
		})
	})
}

// CartRemove decrements a line by quantity, or drops it when quantity is omitted.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body cartRemoveRequest) error {
		return cartAction(r, w, svc, func(userID uuid.UUID) (cartsvc.Snapshot, error) {
			return svc.Remove(r.Context(), userID, body.ProductID, body.Quantity)
		})
	})
}
