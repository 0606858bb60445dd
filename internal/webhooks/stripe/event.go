package stripewebhook

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/orders"
)

// Event is the closed set of provider notifications the storefront acts on.
// Only the types in this file implement it.
type Event interface {
	Type() string
	event()
}

// SessionCompleted: the buyer finished the hosted page. Payment may still be pending.
type SessionCompleted struct {
	Session orders.SessionRef
}

// AsyncPaymentSucceeded: a delayed payment method settled.
type AsyncPaymentSucceeded struct {
	Session orders.SessionRef
}

// AsyncPaymentFailed: a delayed payment method was declined.
type AsyncPaymentFailed struct {
	Session orders.SessionRef
}

// SessionExpired: the hosted session can no longer be paid.
type SessionExpired struct {
	Session orders.SessionRef
}

// Unhandled is any other event type. It is acknowledged without side effects.
type Unhandled struct {
	EventType string
}

func (SessionCompleted) Type() string {
	return string(stripe.EventTypeCheckoutSessionCompleted)
}

func (AsyncPaymentSucceeded) Type() string {
	return string(stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded)
}

func (AsyncPaymentFailed) Type() string {
	return string(stripe.EventTypeCheckoutSessionAsyncPaymentFailed)
}

func (SessionExpired) Type() string {
	return string(stripe.EventTypeCheckoutSessionExpired)
}

func (u Unhandled) Type() string { return u.EventType }

func (SessionCompleted) event()      {}
func (AsyncPaymentSucceeded) event() {}
func (AsyncPaymentFailed) event()    {}
func (SessionExpired) event()        {}
func (Unhandled) event()             {}

// Parse converts a verified provider event into the closed variant.
func Parse(evt stripe.Event) (Event, error) {
	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		ref, err := sessionRef(evt)
		return SessionCompleted{Session: ref}, err
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		ref, err := sessionRef(evt)
		return AsyncPaymentSucceeded{Session: ref}, err
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		ref, err := sessionRef(evt)
		return AsyncPaymentFailed{Session: ref}, err
	case stripe.EventTypeCheckoutSessionExpired:
		ref, err := sessionRef(evt)
		return SessionExpired{Session: ref}, err
	default:
		return Unhandled{EventType: string(evt.Type)}, nil
	}
}

func sessionRef(evt stripe.Event) (orders.SessionRef, error) {
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return orders.SessionRef{}, fmt.Errorf("event %s has no data", evt.ID)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return orders.SessionRef{}, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.ID == "" {
		return orders.SessionRef{}, fmt.Errorf("event %s carries no session id", evt.ID)
	}

	email := session.CustomerEmail
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	return orders.SessionRef{
		ID:                session.ID,
		ClientReferenceID: session.ClientReferenceID,
		CustomerEmail:     email,
		PaymentStatus:     string(session.PaymentStatus),
	}, nil
}
