package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (session.Rotation, error)
	Revoke(context.Context, string) error
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth     auth.Service
	Products products.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Invoices controllers.InvoiceRenderer
	Webhooks webhookcontrollers.StripeWebhookService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	rateStore middleware.RateCounter,
	sessions sessionManager,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.Server.AllowedOrigins),
	)

	policies := middleware.PoliciesFromConfig(cfg.AuthRateLimit)
	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)
	maxImageBytes := cfg.Catalog.MaxImageBytes

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Get("/", controllers.ProductList(svc.Products, logg))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(svc.Webhooks, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(policies.Login, rateStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(policies.Signup, rateStore, logg)).Post("/signup", controllers.AuthSignup(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(policies.Reset, rateStore, logg)).Post("/reset", controllers.AuthResetRequest(svc.Auth, logg))
		r.Post("/new-password", controllers.AuthNewPassword(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(svc.Products, logg))
		r.Get("/{productId}", controllers.ProductDetail(svc.Products, logg))
		r.Get("/{productId}/image", controllers.ProductImage(svc.Products, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/api/v1/admin/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProductList(svc.Products, logg))
			r.Post("/", controllers.AdminProductCreate(svc.Products, maxImageBytes, logg))
			r.Put("/{productId}", controllers.AdminProductUpdate(svc.Products, maxImageBytes, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(svc.Products, logg))
		})

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svc.Cart, logg))
			r.Post("/", controllers.CartAdd(svc.Cart, logg))
			r.Post("/remove", controllers.CartRemove(svc.Cart, logg))
		})

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutSummary(svc.Cart, logg))
			r.Post("/", controllers.CheckoutBegin(svc.Checkout, controllers.CheckoutCallbacks(cfg), logg))
			r.Get("/success", controllers.CheckoutSuccess(svc.Orders, logg))
			r.Get("/cancel", controllers.CheckoutCancel())
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(svc.Orders, logg))
			r.Get("/{orderId}/invoice", controllers.OrderInvoice(svc.Invoices, logg))
		})
	})

	return r
}
