package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mail"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type recordingSender struct {
	sent []mail.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestPasswordResetIncludesLink(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil, "https://shop.example.com/")

	svc.PasswordReset(context.Background(), "a@example.com", "abc123")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Text, "https://shop.example.com/reset/abc123")
	assert.Contains(t, sender.sent[0].HTML, `href="https://shop.example.com/reset/abc123"`)
}

func TestOrderConfirmedListsItems(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil, "")

	svc.OrderConfirmed(context.Background(), &models.Order{
		ID:         uuid.New(),
		UserEmail:  "b@example.com",
		Currency:   enums.CurrencyUSD,
		LineItems:  types.LineItems{{Title: "Book", PriceCents: 1000, Quantity: 2}},
		TotalCents: 2000,
	})

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Book - 2 x $10.00")
	assert.Contains(t, sender.sent[0].Text, "Total: $20.00")
}

func TestSendFailureIsLoggedNotReturned(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	sender := &recordingSender{err: errors.New("sendgrid down")}
	svc := NewService(sender, logg, "")

	svc.Welcome(context.Background(), "c@example.com")
	svc.PaymentFailed(context.Background(), "", "cs_1")

	assert.Len(t, sender.sent, 1, "empty recipients are skipped")
	assert.Contains(t, buf.String(), "sendgrid down")
}
