package main

import (
	"cmp"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/cron"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

func main() {
	cfg, logg, err := bootstrap.Load("cron-worker")
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

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	bootstrap.Must(ctx, logg, "stripe client", err)
	gateway, err := stripe.NewCheckoutGateway(stripeClient, cfg.Stripe)
	bootstrap.Must(ctx, logg, "stripe checkout gateway", err)

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	bootstrap.Must(ctx, logg, "checkout currency", err)

	storefrontMetrics := metrics.New(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	sessionRepo := checkout.NewSessionRepository(dbClient.DB())

	cartService, err := cart.NewService(cartRepo, dbClient, product.NewRepository(dbClient.DB()))
	bootstrap.Must(ctx, logg, "cart service", err)
	checkoutService, err := checkout.NewService(dbClient, cartService, userRepo, sessionRepo, gateway, storefrontMetrics, logg, currency)
	bootstrap.Must(ctx, logg, "checkout service", err)

	sweep, err := cron.NewCheckoutSessionSweep(cron.CheckoutSweepParams{
		Logger:     logg,
		Sessions:   sessionRepo,
		Gateway:    gateway,
		Checkouts:  checkoutService,
		Metrics:    jobMetrics,
		StaleAfter: cfg.Cron.StaleSessionAfter,
		BatchSize:  cfg.Cron.SweepBatchSize,
	})
	bootstrap.Must(ctx, logg, "checkout session sweep", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.Keys().Lock("cron-worker:"+cmp.Or(cfg.App.Env, "local")), cfg.Cron.LockTTL)
	bootstrap.Must(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(sweep),
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL,
	})
	bootstrap.Must(ctx, logg, "cron service", err)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "cron worker started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}
