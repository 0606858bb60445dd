package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mail"
)

// Service sends the storefront's customer emails. Delivery failures are logged
// and never returned: no request fails because mail is down.
type Service struct {
	sender    mail.Sender
	logg      *logger.Logger
	publicURL string
}

func NewService(sender mail.Sender, logg *logger.Logger, publicURL string) *Service {
	return &Service{sender: sender, logg: logg, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *Service) Welcome(ctx context.Context, email string) {
	s.send(ctx, mail.Message{
		To:      email,
		Subject: "Signup succeeded!",
		Text:    "You successfully signed up!",
		HTML:    "<h1>You successfully signed up!</h1>",
	})
}

func (s *Service) PasswordReset(ctx context.Context, email, token string) {
	link := fmt.Sprintf("%s/reset/%s", s.publicURL, token)
	s.send(ctx, mail.Message{
		To:      email,
		Subject: "Password reset",
		Text:    fmt.Sprintf("You requested a password reset. Use this link within one hour to set a new password: %s", link),
		HTML: fmt.Sprintf(`<p>You requested a password reset</p><p>Click this <a href="%s">link</a> to set a new password.</p>`,
			html.EscapeString(link)),
	})
}

func (s *Service) PaymentFailed(ctx context.Context, email, sessionID string) {
	s.send(ctx, mail.Message{
		To:      email,
		Subject: "Your payment did not go through",
		Text:    fmt.Sprintf("We could not collect payment for checkout %s. Your order will not ship; please try checking out again.", sessionID),
		HTML:    fmt.Sprintf("<p>We could not collect payment for checkout <code>%s</code>.</p><p>Please try checking out again.</p>", html.EscapeString(sessionID)),
	})
}

func (s *Service) OrderConfirmed(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	var text, rows strings.Builder
	for _, item := range order.LineItems {
		price := order.Currency.Format(item.PriceCents)
		fmt.Fprintf(&text, "%s - %d x %s\n", item.Title, item.Quantity, price)
		fmt.Fprintf(&rows, "<li>%s - %d x %s</li>", html.EscapeString(item.Title), item.Quantity, html.EscapeString(price))
	}
	total := order.Currency.Format(order.TotalCents)
	s.send(ctx, mail.Message{
		To:      order.UserEmail,
		Subject: fmt.Sprintf("Order %s received", order.ID),
		Text:    fmt.Sprintf("Thanks for your order!\n\n%sTotal: %s\n", text.String(), total),
		HTML:    fmt.Sprintf("<h1>Thanks for your order!</h1><ul>%s</ul><p>Total: %s</p>", rows.String(), total),
	})
}

func (s *Service) send(ctx context.Context, msg mail.Message) {
	if s == nil || s.sender == nil || msg.To == "" {
		return
	}
	if err := s.sender.Send(ctx, msg); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "subject", msg.Subject), "send email", err)
	}
}
