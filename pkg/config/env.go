package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "LITERATURE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "LITERATURE_APP_ENV"
	EnvPort      = "LITERATURE_APP_PORT"
	EnvLogLevel  = "LITERATURE_LOG_LEVEL"
	EnvLogFormat = "LITERATURE_LOG_FORMAT"

	EnvDBDSN  = "LITERATURE_DB_DSN"
	EnvDBHost = "LITERATURE_DB_HOST"
	EnvDBUser = "LITERATURE_DB_USER"
	EnvDBName = "LITERATURE_DB_NAME"

	EnvRedisURL = "LITERATURE_REDIS_URL"

	EnvJWTSecret              = "LITERATURE_JWT_SECRET"
	EnvJWTIssuer              = "LITERATURE_JWT_ISSUER"
	EnvJWTExpMins             = "LITERATURE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LITERATURE_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID      = "LITERATURE_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "LITERATURE_PUBSUB_ORDERS_TOPIC"

	EnvLowStockThreshold = "LITERATURE_INVENTORY_LOW_STOCK_THRESHOLD"
	EnvCronLowStockEvery = "LITERATURE_CRON_LOW_STOCK_INTERVAL"
	EnvCronPendingEvery  = "LITERATURE_CRON_PENDING_ORDER_INTERVAL"
	EnvCronPendingMaxAge = "LITERATURE_CRON_PENDING_ORDER_MAX_AGE"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
