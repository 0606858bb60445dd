package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// constraint names as reported by postgres and sqlite respectively
const (
	sessionUniqueConstraint       = "orders_external_session_id_key"
	sessionUniqueConstraintSQLite = "orders.external_session_id"
)

var errOrderExists = errors.New("order already exists for session")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reconciles provider sessions into the order ledger and serves order history.
type Service interface {
	CreateOrder(ctx context.Context, ref SessionRef) (*models.Order, bool, error)
	FulfillOrder(ctx context.Context, ref SessionRef) (bool, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	FindForSession(ctx context.Context, userID uuid.UUID, sessionID string) (*OrderDTO, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	users    *users.Repository
	carts    *cart.Repository
	sessions *checkout.SessionRepository
	notifier orderNotifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service.
func NewService(tx txRunner, repo Repository, userRepo *users.Repository, carts *cart.Repository, sessions *checkout.SessionRepository, notifier orderNotifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("checkout session repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		users:    userRepo,
		carts:    carts,
		sessions: sessions,
		notifier: notifier,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// CreateOrder records the order for a completed session exactly once. When an
// order already exists for ref.ID it is returned unchanged with created=false.
func (s *service) CreateOrder(ctx context.Context, ref SessionRef) (*models.Order, bool, error) {
	if strings.TrimSpace(ref.ID) == "" {
		return nil, false, pkgerrors.Validation("session_id", "session id is required")
	}
	userID, err := uuid.Parse(strings.TrimSpace(ref.ClientReferenceID))
	if err != nil {
		return nil, false, pkgerrors.Validation("client_reference_id", "client reference id is not a user id")
	}
	ctx = s.logg.WithSessionID(s.logg.WithUserID(ctx, userID.String()), ref.ID)

	var (
		result  *models.Order
		created bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		existing, err := orderRepo.FindBySessionID(ctx, ref.ID)
		if err == nil {
			result = existing
			return nil
		}
		if !db.IsNotFound(err) {
			return pkgerrors.Persistence(err, "load order")
		}

		userRepo := s.users.WithTx(tx)
		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.NotFound("user")
			}
			return pkgerrors.Persistence(err, "load user")
		}

		lines, currency, err := s.resolveSnapshot(ctx, tx, ref.ID, userID)
		if err != nil {
			return err
		}

		email := user.Email
		if email == "" {
			email = ref.CustomerEmail
		}
		order := &models.Order{
			UserID:            user.ID,
			UserEmail:         email,
			ExternalSessionID: ref.ID,
			Currency:          currency,
			LineItems:         lines,
			TotalCents:        lines.TotalCents(),
			Status:            enums.OrderStatusAwaitingPayment,
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, sessionUniqueConstraint) || db.IsUniqueViolation(err, sessionUniqueConstraintSQLite) {
				return errOrderExists
			}
			return pkgerrors.Persistence(err, "insert order")
		}

		if err := s.carts.WithTx(tx).Clear(ctx, user.ID); err != nil {
			return pkgerrors.Persistence(err, "clear cart")
		}
		if _, err := s.sessions.WithTx(tx).MarkCompleted(ctx, ref.ID); err != nil {
			return pkgerrors.Persistence(err, "complete checkout session")
		}
		if _, err := userRepo.SwapPendingSession(ctx, user.ID, &ref.ID, nil); err != nil {
			return pkgerrors.Persistence(err, "clear pending checkout session")
		}

		result = order
		created = true
		return nil
	})
	if errors.Is(err, errOrderExists) {
		existing, findErr := s.repo.FindBySessionID(ctx, ref.ID)
		if findErr != nil {
			return nil, false, pkgerrors.Persistence(findErr, "load existing order")
		}
		return existing, false, nil
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, false, err
		}
		return nil, false, pkgerrors.Persistence(err, "create order")
	}

	if created {
		s.logg.Info(s.logg.WithOrderID(ctx, result.ID.String()), "order created")
	}
	return result, created, nil
}

// resolveSnapshot prefers the items frozen when the session was opened and
// falls back to the live cart for sessions created elsewhere.
func (s *service) resolveSnapshot(ctx context.Context, tx *gorm.DB, sessionID string, userID uuid.UUID) (types.LineItems, enums.Currency, error) {
	record, err := s.sessions.WithTx(tx).FindByID(ctx, sessionID)
	if err == nil {
		return record.Items.Clone(), record.Currency, nil
	}
	if !db.IsNotFound(err) {
		return nil, "", pkgerrors.Persistence(err, "load checkout session")
	}

	s.logg.Warn(ctx, "no stored snapshot for session, using current cart")
	rows, err := s.carts.WithTx(tx).ListWithProducts(ctx, userID)
	if err != nil {
		return nil, "", pkgerrors.Persistence(err, "load cart")
	}
	return cart.NewSnapshot(userID, rows, s.now().UTC()).Lines, enums.CurrencyUSD, nil
}

// FulfillOrder marks the session's order paid. A missing or already paid order is a no-op.
func (s *service) FulfillOrder(ctx context.Context, ref SessionRef) (bool, error) {
	ctx = s.logg.WithSessionID(ctx, ref.ID)
	updated, err := s.repo.MarkPaid(ctx, ref.ID, s.now().UTC())
	if err != nil {
		return false, pkgerrors.Persistence(err, "mark order paid")
	}
	if !updated {
		s.logg.Info(ctx, "fulfillment skipped, no order awaiting payment")
		return false, nil
	}

	order, err := s.repo.FindBySessionID(ctx, ref.ID)
	if err != nil {
		s.logg.Error(ctx, "failed to reload fulfilled order", err)
		return true, nil
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order fulfilled")
	if s.notifier != nil {
		s.notifier.OrderConfirmed(ctx, order)
	}
	return true, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Persistence(err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewOrderDTO(&rows[i]))
	}
	return out, nil
}

// FindForSession returns the user's order for a checkout session.
func (s *service) FindForSession(ctx context.Context, userID uuid.UUID, sessionID string) (*OrderDTO, error) {
	order, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("order")
		}
		return nil, pkgerrors.Persistence(err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.NotFound("order")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}
