package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	paystripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	checkoutSweepName        = "checkout-session-sweep"
	defaultStaleSessionAfter = 25 * time.Hour
	defaultSweepBatchSize    = 100
)

type staleSessionReader interface {
	FindOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutSession, error)
}

type sessionExpirer interface {
	ExpireSession(ctx context.Context, id string) error
}

type sessionReleaser interface {
	ReleaseSession(ctx context.Context, sessionID string, userID uuid.UUID) error
}

// CheckoutSweepParams configure the abandoned checkout sweep.
type CheckoutSweepParams struct {
	Logger     *logger.Logger
	Sessions   staleSessionReader
	Gateway    sessionExpirer
	Checkouts  sessionReleaser
	Metrics    *metrics.JobMetrics
	StaleAfter time.Duration
	BatchSize  int
}

// NewCheckoutSessionSweep builds the job that closes hosted sessions whose
// expiry webhook never arrived and frees the owner's pending slot.
func NewCheckoutSessionSweep(params CheckoutSweepParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session reader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if params.Checkouts == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleSessionAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &checkoutSessionSweep{
		logg:       params.Logger,
		sessions:   params.Sessions,
		gateway:    params.Gateway,
		checkouts:  params.Checkouts,
		metrics:    params.Metrics,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type checkoutSessionSweep struct {
	logg       *logger.Logger
	sessions   staleSessionReader
	gateway    sessionExpirer
	checkouts  sessionReleaser
	metrics    *metrics.JobMetrics
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *checkoutSessionSweep) Name() string { return checkoutSweepName }

func (j *checkoutSessionSweep) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	stale, err := j.sessions.FindOpenBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query stale checkout sessions: %w", err)
	}

	var errs error
	released := 0
	for _, session := range stale {
		sessionCtx := j.logg.WithSessionID(ctx, session.ID)
		if err := j.gateway.ExpireSession(sessionCtx, session.ID); err != nil {
			if !errors.Is(err, paystripe.ErrSessionNotExpirable) {
				errs = multierr.Append(errs, fmt.Errorf("expire session %s: %w", session.ID, err))
				continue
			}
			// Already closed upstream. A late completion still creates the order.
			j.logg.Warn(sessionCtx, "stale checkout session already closed upstream")
		}
		if err := j.checkouts.ReleaseSession(sessionCtx, session.ID, session.UserID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release session %s: %w", session.ID, err))
			continue
		}
		released++
	}

	j.metrics.AddItems(checkoutSweepName, released)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"stale":    len(stale),
		"released": released,
	})
	j.logg.Info(ctx, "checkout session sweep finished")
	return errs
}
