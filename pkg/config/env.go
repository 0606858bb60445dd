package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvStorageBackend         = "STOREFRONT_STORAGE_BACKEND"
	EnvItemsPerPage           = "STOREFRONT_ITEMS_PER_PAGE"
	EnvStripeSecret           = "STOREFRONT_STRIPE_SECRET"
	EnvCronInterval           = "STOREFRONT_CRON_INTERVAL"
	EnvCronLockTTL            = "STOREFRONT_CRON_LOCK_TTL"
)
