package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard claims provider event ids in Redis so a redelivered event
// is acknowledged without being handled twice. Each claim carries a random
// token; Release only drops a claim it still owns.
type IdempotencyGuard struct {
	store claimStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store claimStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl <= 0:
		return nil, errors.New("idempotency ttl must be positive")
	case scope == "":
		return nil, errors.New("idempotency scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// Claim returns a non-empty token when this caller now owns eventID, or ""
// when an earlier delivery already claimed it.
func (g *IdempotencyGuard) Claim(ctx context.Context, eventID string) (string, error) {
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	token := uuid.NewString()
	won, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), token, g.ttl)
	if err != nil {
		return "", fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if !won {
		return "", nil
	}
	return token, nil
}

// Release gives up a claim so the provider's retry is handled again.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID, token string) error {
	if eventID == "" || token == "" {
		return errors.New("event id and claim token are required")
	}
	if _, err := g.store.DelIfValue(ctx, g.store.IdempotencyKey(g.scope, eventID), token); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}
