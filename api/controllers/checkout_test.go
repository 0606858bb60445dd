package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	result    *checkoutsvc.Result
	err       error
	callbacks checkoutsvc.Callbacks
}

func (s *stubCheckoutService) BeginCheckout(ctx context.Context, userID uuid.UUID, callbacks checkoutsvc.Callbacks) (*checkoutsvc.Result, error) {
	s.callbacks = callbacks
	return s.result, s.err
}

func (s *stubCheckoutService) ReleaseSession(ctx context.Context, sessionID string, userID uuid.UUID) error {
	return nil
}

type stubOrderService struct {
	order *orders.OrderDTO
	err   error
}

func (s stubOrderService) CreateOrder(ctx context.Context, ref orders.SessionRef) (*models.Order, bool, error) {
	return nil, false, nil
}

func (s stubOrderService) FulfillOrder(ctx context.Context, ref orders.SessionRef) (bool, error) {
	return false, nil
}

func (s stubOrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]orders.OrderDTO, error) {
	return nil, s.err
}

func (s stubOrderService) FindForSession(ctx context.Context, userID uuid.UUID, sessionID string) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
}

func TestCheckoutBeginRedirectsToHostedPage(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.Result{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}}
	callbacks := checkoutsvc.Callbacks{SuccessURL: "https://shop/success", CancelURL: "https://shop/cancel"}
	handler := CheckoutBegin(svc, callbacks, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "https://checkout.stripe.com/c/cs_1" {
		t.Fatalf("unexpected location %s", rec.Header().Get("Location"))
	}
	if svc.callbacks != callbacks {
		t.Fatalf("callbacks not forwarded")
	}
}

func TestCheckoutBeginEmptyCartRedirectsToCart(t *testing.T) {
	handler := CheckoutBegin(&stubCheckoutService{err: checkoutsvc.ErrEmptyCart}, checkoutsvc.Callbacks{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", rec.Code)
	}
	if rec.Header().Get("Location") != cartPath {
		t.Fatalf("unexpected location %s", rec.Header().Get("Location"))
	}
}

func TestCheckoutBeginGatewayFailure(t *testing.T) {
	handler := CheckoutBegin(&stubCheckoutService{err: pkgerrors.Upstream(context.DeadlineExceeded, "create checkout session")}, checkoutsvc.Callbacks{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestCheckoutBeginRequiresUser(t *testing.T) {
	handler := CheckoutBegin(&stubCheckoutService{}, checkoutsvc.Callbacks{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCheckoutSuccessProcessingUntilWebhook(t *testing.T) {
	handler := CheckoutSuccess(stubOrderService{err: pkgerrors.NotFound("order")}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/checkout/success?session_id=cs_1", nil)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rec.Code)
	}
	var envelope struct {
		Data checkoutStatusResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != "processing" {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestCheckoutSuccessReportsOrder(t *testing.T) {
	order := &orders.OrderDTO{ID: uuid.New(), Status: "payment_received"}
	handler := CheckoutSuccess(stubOrderService{order: order}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/checkout/success?session_id=cs_1", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestCheckoutCallbacksDefaultToAPI(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{PublicURL: "https://shop.example.com/"}}
	callbacks := CheckoutCallbacks(cfg)

	if callbacks.SuccessURL != "https://shop.example.com/api/v1/checkout/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url %s", callbacks.SuccessURL)
	}
	if callbacks.CancelURL != "https://shop.example.com/api/v1/checkout/cancel" {
		t.Fatalf("unexpected cancel url %s", callbacks.CancelURL)
	}
}
