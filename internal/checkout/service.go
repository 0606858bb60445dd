package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	paystripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// ErrEmptyCart is returned when checkout starts with nothing in the cart.
var ErrEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")

var errPendingSessionRaced = errors.New("pending checkout session changed concurrently")

// Gateway opens and closes hosted payment sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req paystripe.SessionRequest) (paystripe.Session, error)
	ExpireSession(ctx context.Context, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
}

// Callbacks are the absolute URLs the hosted page returns to. SuccessURL may
// carry the {CHECKOUT_SESSION_ID} template.
type Callbacks struct {
	SuccessURL string
	CancelURL  string
}

// Result is where the buyer is sent to pay.
type Result struct {
	SessionID  string
	URL        string
	TotalCents int64
}

// Service begins hosted checkouts and releases sessions the provider expired.
type Service interface {
	BeginCheckout(ctx context.Context, userID uuid.UUID, callbacks Callbacks) (*Result, error)
	ReleaseSession(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type service struct {
	tx       txRunner
	carts    cartReader
	users    *users.Repository
	sessions *SessionRepository
	gateway  Gateway
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
	currency enums.Currency
	newKey   func() string
}

// NewService builds the checkout orchestrator.
func NewService(tx txRunner, carts cartReader, userRepo *users.Repository, sessions *SessionRepository, gateway Gateway, m *metrics.StorefrontMetrics, logg *logger.Logger, currency enums.Currency) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !currency.IsValid() {
		currency = enums.CurrencyUSD
	}
	return &service{
		tx:       tx,
		carts:    carts,
		users:    userRepo,
		sessions: sessions,
		gateway:  gateway,
		metrics:  m,
		logg:     logg,
		currency: currency,
		newKey:   uuid.NewString,
	}, nil
}

// BeginCheckout opens a hosted session for the user's cart and records it as
// the user's only pending session before handing back the redirect URL.
func (s *service) BeginCheckout(ctx context.Context, userID uuid.UUID, callbacks Callbacks) (*Result, error) {
	ctx = s.logg.WithUserID(ctx, userID.String())

	snapshot, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		s.metrics.IncCheckout(metrics.OutcomeFailed)
		return nil, err
	}
	if snapshot.Empty() {
		s.metrics.IncCheckout(metrics.OutcomeRejected)
		return nil, ErrEmptyCart
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.metrics.IncCheckout(metrics.OutcomeFailed)
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("user")
		}
		return nil, pkgerrors.Persistence(err, "load user")
	}

	previous := user.PendingSessionID
	if previous != nil {
		if err := s.gateway.ExpireSession(ctx, *previous); err != nil {
			if !errors.Is(err, paystripe.ErrSessionNotExpirable) {
				s.metrics.IncCheckout(metrics.OutcomeFailed)
				return nil, pkgerrors.Upstream(err, "expire previous checkout session")
			}
			s.logg.Info(s.logg.WithSessionID(ctx, *previous), "previous checkout session already closed upstream")
		}
	}

	lines := snapshot.Lines.Clone()
	req := paystripe.SessionRequest{
		Currency:          s.currency.String(),
		Items:             make([]paystripe.LineItem, 0, len(lines)),
		CustomerEmail:     user.Email,
		ClientReferenceID: user.ID.String(),
		SuccessURL:        callbacks.SuccessURL,
		CancelURL:         callbacks.CancelURL,
		IdempotencyKey:    "checkout-" + s.newKey(),
	}
	for _, line := range lines {
		req.Items = append(req.Items, paystripe.LineItem{
			Name:        line.Title,
			Description: line.Description,
			UnitAmount:  line.PriceCents,
			Quantity:    int64(line.Quantity),
		})
	}

	created, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.metrics.IncCheckout(metrics.OutcomeFailed)
		return nil, pkgerrors.Upstream(err, "create checkout session")
	}
	ctx = s.logg.WithSessionID(ctx, created.ID)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sessions := s.sessions.WithTx(tx)
		record := &models.CheckoutSession{
			ID:         created.ID,
			UserID:     user.ID,
			UserEmail:  user.Email,
			Currency:   s.currency,
			Items:      lines,
			TotalCents: lines.TotalCents(),
			Status:     enums.CheckoutSessionStatusOpen,
			URL:        created.URL,
		}
		if err := sessions.Create(ctx, record); err != nil {
			return pkgerrors.Persistence(err, "store checkout session")
		}
		if previous != nil {
			if _, err := sessions.UpdateStatus(ctx, *previous, enums.CheckoutSessionStatusOpen, enums.CheckoutSessionStatusExpired); err != nil {
				return pkgerrors.Persistence(err, "expire previous checkout session")
			}
		}
		swapped, err := s.users.WithTx(tx).SwapPendingSession(ctx, user.ID, previous, &created.ID)
		if err != nil {
			return pkgerrors.Persistence(err, "record pending checkout session")
		}
		if !swapped {
			return errPendingSessionRaced
		}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout(metrics.OutcomeFailed)
		s.abandon(ctx, created.ID)
		if errors.Is(err, errPendingSessionRaced) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "another checkout is already in progress")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Persistence(err, "begin checkout")
	}

	s.metrics.IncCheckout(metrics.OutcomeOK)
	s.logg.Info(ctx, "checkout session created")
	return &Result{
		SessionID:  created.ID,
		URL:        created.URL,
		TotalCents: lines.TotalCents(),
	}, nil
}

// abandon expires a session that could not be recorded locally so it can never be paid.
func (s *service) abandon(ctx context.Context, sessionID string) {
	expireCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.gateway.ExpireSession(expireCtx, sessionID); err != nil && !errors.Is(err, paystripe.ErrSessionNotExpirable) {
		s.logg.Error(ctx, "failed to expire unrecorded checkout session", err)
	}
}

// ReleaseSession marks an expired session and clears it from the user when it
// is still their pending one.
func (s *service) ReleaseSession(ctx context.Context, sessionID string, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sessions := s.sessions.WithTx(tx)
		if _, err := sessions.UpdateStatus(ctx, sessionID, enums.CheckoutSessionStatusOpen, enums.CheckoutSessionStatusExpired); err != nil {
			return pkgerrors.Persistence(err, "expire checkout session")
		}
		if userID == uuid.Nil {
			record, err := sessions.FindByID(ctx, sessionID)
			if err != nil {
				if db.IsNotFound(err) {
					return nil
				}
				return pkgerrors.Persistence(err, "load checkout session")
			}
			userID = record.UserID
		}
		if _, err := s.users.WithTx(tx).SwapPendingSession(ctx, userID, &sessionID, nil); err != nil {
			return pkgerrors.Persistence(err, "clear pending checkout session")
		}
		return nil
	})
}
