// Package bootstrap holds the process setup shared by the binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Load reads an optional .env file and the environment, then builds the
// service logger from the result.
func Load(service string) (*config.Config, *logger.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, logger.New(logger.Options{ServiceName: service}), err
	}
	logg := logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	if envErr != nil {
		logg.Debug(context.Background(), ".env not loaded, using process environment")
	}
	return cfg, logg, nil
}

// Stores are the connections every long-running binary needs.
type Stores struct {
	DB    *db.Client
	Redis *redis.Client
}

// OpenStores connects to the database, applies dev migrations when enabled
// and connects to Redis. Whatever was opened is closed again on failure.
func OpenStores(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Stores, error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), dbClient.Close())
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("redis: %w", err), dbClient.Close())
	}
	return &Stores{DB: dbClient, Redis: redisClient}, nil
}

func (s *Stores) Close() error {
	return multierr.Combine(s.Redis.Close(), s.DB.Close())
}

// Must logs err against the named component and exits.
func Must(ctx context.Context, logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "component", component), "startup failed", err)
	os.Exit(1)
}
