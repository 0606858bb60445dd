package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestFindOpenBeforeReturnsOldestOpenSessions(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewSessionRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	seed := func(id string, status enums.CheckoutSessionStatus, age time.Duration) {
		require.NoError(t, repo.Create(ctx, &models.CheckoutSession{
			ID:        id,
			UserID:    userID,
			UserEmail: "buyer@example.com",
			Currency:  enums.CurrencyUSD,
			Status:    status,
			URL:       "https://checkout.stripe.test/" + id,
			CreatedAt: now.Add(-age),
		}))
	}
	seed("cs_old", enums.CheckoutSessionStatusOpen, 48*time.Hour)
	seed("cs_older", enums.CheckoutSessionStatusOpen, 72*time.Hour)
	seed("cs_fresh", enums.CheckoutSessionStatusOpen, time.Hour)
	seed("cs_paid", enums.CheckoutSessionStatusCompleted, 72*time.Hour)

	stale, err := repo.FindOpenBefore(ctx, now.Add(-25*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "cs_older", stale[0].ID)
	assert.Equal(t, "cs_old", stale[1].ID)

	limited, err := repo.FindOpenBefore(ctx, now.Add(-25*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "cs_older", limited[0].ID)
}
