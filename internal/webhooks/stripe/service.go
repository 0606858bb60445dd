package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type eventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type eventGuard interface {
	Claim(ctx context.Context, eventID string) (string, error)
	Release(ctx context.Context, eventID, token string) error
}

type orderService interface {
	CreateOrder(ctx context.Context, ref orders.SessionRef) (*models.Order, bool, error)
	FulfillOrder(ctx context.Context, ref orders.SessionRef) (bool, error)
}

type sessionReleaser interface {
	ReleaseSession(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type paymentNotifier interface {
	PaymentFailed(ctx context.Context, email, sessionID string)
}

type ServiceParams struct {
	Verifier  eventVerifier
	Guard     eventGuard
	Orders    orderService
	Checkouts sessionReleaser
	Notifier  paymentNotifier
	Metrics   *metrics.StorefrontMetrics
	Logger    *logger.Logger
}

// Service verifies provider webhooks and routes them to the order ledger.
type Service struct {
	verifier  eventVerifier
	guard     eventGuard
	orders    orderService
	checkouts sessionReleaser
	notifier  paymentNotifier
	metrics   *metrics.StorefrontMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event verifier required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Checkouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		verifier:  params.Verifier,
		guard:     params.Guard,
		orders:    params.Orders,
		checkouts: params.Checkouts,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// HandleEvent verifies the signature, drops redeliveries and dispatches the
// event. A nil error means the delivery may be acknowledged.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	started := time.Now()
	if strings.TrimSpace(signature) == "" {
		s.metrics.ObserveWebhook("unknown", metrics.OutcomeRejected, time.Since(started))
		return pkgerrors.Validation("Stripe-Signature", "stripe signature missing")
	}

	raw, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		s.metrics.ObserveWebhook("unknown", metrics.OutcomeRejected, time.Since(started))
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook signature verification failed")
	}
	eventType := string(raw.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{"stripe_event_id": raw.ID, "stripe_event_type": eventType})

	claim, err := s.guard.Claim(ctx, raw.ID)
	if err != nil {
		s.metrics.ObserveWebhook(eventType, metrics.OutcomeFailed, time.Since(started))
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check webhook idempotency")
	}
	if claim == "" {
		s.logg.Info(ctx, "stripe event already processed")
		s.metrics.ObserveWebhook(eventType, metrics.OutcomeDuplicate, time.Since(started))
		return nil
	}

	evt, err := Parse(raw)
	if err == nil {
		err = s.Dispatch(ctx, evt)
	}
	if err != nil {
		if releaseErr := s.guard.Release(context.WithoutCancel(ctx), raw.ID, claim); releaseErr != nil {
			s.logg.Error(ctx, "failed to release webhook idempotency key", releaseErr)
		}
		s.metrics.ObserveWebhook(eventType, metrics.OutcomeFailed, time.Since(started))
		// past the signature check every failure must read as 500 so Stripe retries
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "handle stripe event")
	}

	outcome := metrics.OutcomeOK
	if _, ignored := evt.(Unhandled); ignored {
		outcome = metrics.OutcomeIgnored
	}
	s.metrics.ObserveWebhook(eventType, outcome, time.Since(started))
	s.logg.Info(ctx, fmt.Sprintf("stripe event %s processed", raw.ID))
	return nil
}

// Dispatch applies one parsed event.
func (s *Service) Dispatch(ctx context.Context, evt Event) error {
	switch e := evt.(type) {
	case SessionCompleted:
		ctx = s.logg.WithSessionID(ctx, e.Session.ID)
		order, created, err := s.orders.CreateOrder(ctx, e.Session)
		if err != nil {
			return err
		}
		if created {
			s.metrics.IncOrderCreated()
		}
		ctx = s.logg.WithOrderID(ctx, order.ID.String())
		if e.Session.Settled() {
			return s.fulfill(ctx, e.Session)
		}
		s.logg.Info(ctx, "order awaiting asynchronous payment")
		return nil
	case AsyncPaymentSucceeded:
		return s.fulfill(s.logg.WithSessionID(ctx, e.Session.ID), e.Session)
	case AsyncPaymentFailed:
		ctx = s.logg.WithSessionID(ctx, e.Session.ID)
		s.logg.Warn(ctx, "asynchronous payment failed")
		if s.notifier != nil && e.Session.CustomerEmail != "" {
			s.notifier.PaymentFailed(ctx, e.Session.CustomerEmail, e.Session.ID)
		}
		return nil
	case SessionExpired:
		ctx = s.logg.WithSessionID(ctx, e.Session.ID)
		userID, err := uuid.Parse(e.Session.ClientReferenceID)
		if err != nil {
			userID = uuid.Nil
		}
		return s.checkouts.ReleaseSession(ctx, e.Session.ID, userID)
	case Unhandled:
		s.logg.Debug(ctx, "ignoring stripe event "+e.EventType)
		return nil
	default:
		return errors.New("unknown webhook event variant")
	}
}

func (s *Service) fulfill(ctx context.Context, ref orders.SessionRef) error {
	fulfilled, err := s.orders.FulfillOrder(ctx, ref)
	if err != nil {
		return err
	}
	if fulfilled {
		s.metrics.IncOrderFulfilled()
	}
	return nil
}
