package config

const (
	EnvPrefix = "SUPPLYDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	UsageCountingInflight    = "inflight"
	UsageCountingPendingOnly = "pending_only"
)

const (
	EnvAppEnv                 = "SUPPLYDESK_APP_ENV"
	EnvPort                   = "SUPPLYDESK_APP_PORT"
	EnvLogLevel               = "SUPPLYDESK_LOG_LEVEL"
	EnvDBDSN                  = "SUPPLYDESK_DB_DSN"
	EnvDBHost                 = "SUPPLYDESK_DB_HOST"
	EnvDBPort                 = "SUPPLYDESK_DB_PORT"
	EnvDBUser                 = "SUPPLYDESK_DB_USER"
	EnvDBPassword             = "SUPPLYDESK_DB_PASSWORD"
	EnvDBName                 = "SUPPLYDESK_DB_NAME"
	EnvDBSSLMode              = "SUPPLYDESK_DB_SSLMODE"
	EnvUseSQLite              = "SUPPLYDESK_USE_SQLITE"
	EnvRedisURL               = "SUPPLYDESK_REDIS_URL"
	EnvJWTSecret              = "SUPPLYDESK_JWT_SECRET"
	EnvJWTIssuer              = "SUPPLYDESK_JWT_ISSUER"
	EnvJWTExpMins             = "SUPPLYDESK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SUPPLYDESK_REFRESH_TOKEN_TTL_MINUTES"
	EnvUsageCountingMode      = "SUPPLYDESK_USAGE_COUNTING_MODE"
	EnvUsageTimeZone          = "SUPPLYDESK_USAGE_TIMEZONE"
	EnvGCPProjectID           = "SUPPLYDESK_GCP_PROJECT_ID"
	EnvPubSubRequestsTopic    = "SUPPLYDESK_PUBSUB_REQUESTS_TOPIC"
	EnvPubSubInventoryTopic   = "SUPPLYDESK_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubInventorySub     = "SUPPLYDESK_PUBSUB_INVENTORY_SUBSCRIPTION"
	EnvPubSubNotifyTopic      = "SUPPLYDESK_PUBSUB_NOTIFICATION_TOPIC"
	EnvCronInterval           = "SUPPLYDESK_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
