package config

const (
	EnvPrefix = "SETTLEMENT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "SETTLEMENT_APP_ENV"
	EnvPort     = "SETTLEMENT_APP_PORT"
	EnvLogLevel = "SETTLEMENT_LOG_LEVEL"

	EnvDBDSN  = "SETTLEMENT_DB_DSN"
	EnvDBHost = "SETTLEMENT_DB_HOST"
	EnvDBUser = "SETTLEMENT_DB_USER"
	EnvDBName = "SETTLEMENT_DB_NAME"

	EnvRedisURL = "SETTLEMENT_REDIS_URL"

	EnvJWTSecret = "SETTLEMENT_JWT_SECRET"
	EnvJWTIssuer = "SETTLEMENT_JWT_ISSUER"

	EnvStripeAPIKey = "SETTLEMENT_STRIPE_API_KEY"
	EnvStripeSecret = "SETTLEMENT_STRIPE_SECRET"

	EnvEscrowHoldDays        = "SETTLEMENT_ESCROW_HOLD_DAYS"
	EnvNotificationTransport = "SETTLEMENT_NOTIFICATION_TRANSPORT"
	EnvKafkaBrokers          = "SETTLEMENT_KAFKA_BROKERS"
	EnvFrontendURL           = "SETTLEMENT_FRONTEND_URL"
)

const (
	NotificationTransportLog    = "log"
	NotificationTransportPubSub = "pubsub"
	NotificationTransportKafka  = "kafka"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
