package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	cartPath            = "/cart"
	checkoutSummaryPath = "/api/v1/checkout"
)

// CheckoutCallbacks resolves the hosted page return URLs, defaulting to this
// API's own success and cancel endpoints.
func CheckoutCallbacks(cfg *config.Config) checkoutsvc.Callbacks {
	base := strings.TrimRight(cfg.App.PublicURL, "/")
	callbacks := checkoutsvc.Callbacks{
		SuccessURL: strings.TrimSpace(cfg.Checkout.SuccessURL),
		CancelURL:  strings.TrimSpace(cfg.Checkout.CancelURL),
	}
	if callbacks.SuccessURL == "" {
		callbacks.SuccessURL = base + checkoutSummaryPath + "/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if callbacks.CancelURL == "" {
		callbacks.CancelURL = base + checkoutSummaryPath + "/cancel"
	}
	return callbacks
}

// CheckoutBegin opens a hosted checkout for the caller's cart and redirects
// there. An empty cart sends the buyer back to the cart page.
func CheckoutBegin(svc checkoutsvc.Service, callbacks checkoutsvc.Callbacks, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("checkout")
		}
		userID, err := requireUser(r)
		if err != nil {
			return err
		}

		result, err := svc.BeginCheckout(r.Context(), userID, callbacks)
		switch {
		case errors.Is(err, checkoutsvc.ErrEmptyCart):
			http.Redirect(w, r, cartPath, http.StatusSeeOther)
		case err != nil:
			return err
		default:
			http.Redirect(w, r, result.URL, http.StatusSeeOther)
		}
		return nil
	})
}

// CheckoutSummary shows what BeginCheckout would charge.
func CheckoutSummary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("cart")
		}
		userID, err := requireUser(r)
		if err != nil {
			return err
		}
		snapshot, err := svc.Snapshot(r.Context(), userID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, cartsvc.NewCartDTO(snapshot))
		return nil
	})
}

type checkoutStatusResponse struct {
	Status string           `json:"status"`
	Order  *orders.OrderDTO `json:"order,omitempty"`
}

// CheckoutSuccess reports the order for a returning buyer. The webhook may
// not have landed yet, in which case the answer is 202 processing.
func CheckoutSuccess(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("order")
		}
		userID, err := requireUser(r)
		if err != nil {
			return err
		}
		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			return pkgerrors.Validation("session_id", "session_id is required")
		}

		order, err := svc.FindForSession(r.Context(), userID, sessionID)
		switch {
		case pkgerrors.Is(err, pkgerrors.CodeNotFound):
			responses.WriteSuccessStatus(w, http.StatusAccepted, checkoutStatusResponse{Status: "processing"})
		case err != nil:
			return err
		default:
			responses.WriteSuccess(w, checkoutStatusResponse{Status: order.Status, Order: order})
		}
		return nil
	})
}

func CheckoutCancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, checkoutSummaryPath, http.StatusSeeOther)
	}
}
