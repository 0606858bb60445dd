package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ErrSessionNotExpirable is returned by ExpireSession when Stripe refuses to
// expire the session because it is already complete, expired or unknown.
var ErrSessionNotExpirable = errors.New("checkout session cannot be expired")

// ErrGatewayUnavailable is returned while the circuit breaker is open.
var ErrGatewayUnavailable = errors.New("payment gateway temporarily unavailable")

// LineItem is one priced row of a hosted checkout session.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest carries everything needed to open a hosted checkout session.
type SessionRequest struct {
	Currency          string
	Items             []LineItem
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	IdempotencyKey    string
}

// Session is the provider's handle for a created checkout session.
type Session struct {
	ID  string
	URL string
}

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

type packageSessionAPI struct{}

func (packageSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (packageSessionAPI) Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error) {
	return session.Expire(id, params)
}

// CheckoutGateway creates and expires Stripe Checkout Sessions behind a circuit breaker.
type CheckoutGateway struct {
	api     sessionAPI
	breaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
}

// NewCheckoutGateway wires the gateway to the package-level Stripe key set by NewClient.
func NewCheckoutGateway(client *Client, cfg config.StripeConfig) (*CheckoutGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return newCheckoutGateway(packageSessionAPI{}, cfg.BreakerFailures, cfg.BreakerTimeout), nil
}

func newCheckoutGateway(api sessionAPI, maxFailures uint32, openTimeout time.Duration) *CheckoutGateway {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Client errors are Stripe answering normally and must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	}
	return &CheckoutGateway{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](settings),
	}
}

// CreateSession opens a payment-mode checkout session priced from req.Items.
func (g *CheckoutGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if len(req.Items) == 0 {
		return Session{}, errors.New("at least one line item is required")
	}
	params := buildSessionParams(req)
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	created, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.api.New(params)
	})
	if err != nil {
		return Session{}, translateBreakerErr(err, "create checkout session")
	}
	return Session{ID: created.ID, URL: created.URL}, nil
}

// ExpireSession closes an open session so it can no longer be paid.
func (g *CheckoutGateway) ExpireSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session id is required")
	}
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	_, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.api.Expire(id, params)
	})
	if err != nil {
		if isNotExpirable(err) {
			return fmt.Errorf("%w: %v", ErrSessionNotExpirable, err)
		}
		return translateBreakerErr(err, "expire checkout session")
	}
	return nil
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	return params
}

func isClientError(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.Type == stripe.ErrorTypeInvalidRequest {
		return true
	}
	return stripeErr.HTTPStatusCode >= http.StatusBadRequest && stripeErr.HTTPStatusCode < http.StatusInternalServerError &&
		stripeErr.HTTPStatusCode != http.StatusTooManyRequests
}

// isNotExpirable reports Stripe refusing to expire a session that is already
// complete, expired or unknown. Auth and permission failures do not count.
func isNotExpirable(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Type != stripe.ErrorTypeInvalidRequest {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusBadRequest || stripeErr.HTTPStatusCode == http.StatusNotFound
}

func translateBreakerErr(err error, op string) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
