package main

import (
	"cmp"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api"
	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/mail"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	blob "github.com/angelmondragon/storefront-backend/pkg/storage"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

func main() {
	cfg, logg, err := bootstrap.Load("api")
	bootstrap.Must(context.Background(), logg, "config", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logg)
	bootstrap.Must(ctx, logg, "stores", err)
	defer func() {
		if err := stores.Close(); err != nil {
			logg.Error(context.Background(), "closing stores", err)
		}
	}()
	dbClient, redisClient := stores.DB, stores.Redis

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	bootstrap.Must(ctx, logg, "session manager", err)

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	var store blob.Blob
	switch cfg.Storage.Backend {
	case config.StorageBackendGCS:
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		bootstrap.Must(ctx, logg, "gcs", err)
		defer gcsClient.Close()
		store = gcsClient
		readiness["gcs"] = gcsClient
	default:
		local, err := blob.NewLocal(cfg.Storage.LocalRoot)
		bootstrap.Must(ctx, logg, "local storage", err)
		store = local
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	bootstrap.Must(ctx, logg, "stripe client", err)
	gateway, err := stripe.NewCheckoutGateway(stripeClient, cfg.Stripe)
	bootstrap.Must(ctx, logg, "stripe checkout gateway", err)

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	bootstrap.Must(ctx, logg, "checkout currency", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.New(registry)

	notifier := notifications.NewService(mail.New(cfg.Sendgrid, logg), logg, cfg.App.PublicURL)

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	sessionRepo := checkout.NewSessionRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Mailer:         notifier,
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	bootstrap.Must(ctx, logg, "auth service", err)

	productService, err := product.NewService(productRepo, cartRepo, dbClient, store, logg, cfg.Catalog.ItemsPerPage)
	bootstrap.Must(ctx, logg, "product service", err)

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo)
	bootstrap.Must(ctx, logg, "cart service", err)

	checkoutService, err := checkout.NewService(dbClient, cartService, userRepo, sessionRepo, gateway, storefrontMetrics, logg, currency)
	bootstrap.Must(ctx, logg, "checkout service", err)

	orderService, err := orders.NewService(dbClient, orderRepo, userRepo, cartRepo, sessionRepo, notifier, logg)
	bootstrap.Must(ctx, logg, "order service", err)

	invoiceService, err := invoices.NewService(orderRepo, store, logg)
	bootstrap.Must(ctx, logg, "invoice service", err)

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "stripe-webhook")
	bootstrap.Must(ctx, logg, "webhook idempotency guard", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Verifier:  stripeClient,
		Guard:     guard,
		Orders:    orderService,
		Checkouts: checkoutService,
		Notifier:  notifier,
		Metrics:   storefrontMetrics,
		Logger:    logg,
	})
	bootstrap.Must(ctx, logg, "stripe webhook service", err)

	router := routes.NewRouter(cfg, logg, readiness, redisClient, sessionManager, registry, routes.Services{
		Auth:     authService,
		Products: productService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
		Invoices: invoiceService,
		Webhooks: webhookService,
	})

	// PORT is set by the hosting platform and wins over the configured port.
	port := cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "api listening")

	if err := api.NewServer(addr, cfg.Server, router, logg).Run(ctx); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
