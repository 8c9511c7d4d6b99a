package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Escrow       EscrowConfig
	Order        OrderConfig
	Frontend     FrontendConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notification.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SETTLEMENT_APP_ENV" required:"true"`
	Port         string `envconfig:"SETTLEMENT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SETTLEMENT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SETTLEMENT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SETTLEMENT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SETTLEMENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SETTLEMENT_DB_DSN"`
	Driver string `envconfig:"SETTLEMENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SETTLEMENT_DB_HOST"`
	LegacyPort     int    `envconfig:"SETTLEMENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SETTLEMENT_DB_USER"`
	LegacyPassword string `envconfig:"SETTLEMENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"SETTLEMENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"SETTLEMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SETTLEMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SETTLEMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SETTLEMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SETTLEMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SETTLEMENT_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SETTLEMENT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SETTLEMENT_REDIS_ADDR"`
	Password     string        `envconfig:"SETTLEMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SETTLEMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SETTLEMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SETTLEMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SETTLEMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SETTLEMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SETTLEMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
	WebhookTTL   time.Duration `envconfig:"SETTLEMENT_REDIS_WEBHOOK_TTL" default:"720h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SETTLEMENT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SETTLEMENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SETTLEMENT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type StripeConfig struct {
	APIKey   string `envconfig:"SETTLEMENT_STRIPE_API_KEY"`
	Secret   string `envconfig:"SETTLEMENT_STRIPE_SECRET"`
	Env      string `envconfig:"SETTLEMENT_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"SETTLEMENT_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CurrencyCode returns the lower-case ISO currency used for every session and refund.
func (s StripeConfig) CurrencyCode() string {
	cur := strings.TrimSpace(strings.ToLower(s.Currency))
	if cur == "" {
		return "usd"
	}
	return cur
}

type EscrowConfig struct {
	HoldDays            int           `envconfig:"SETTLEMENT_ESCROW_HOLD_DAYS" default:"7"`
	AutoReleaseInterval time.Duration `envconfig:"SETTLEMENT_ESCROW_AUTO_RELEASE_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"SETTLEMENT_ESCROW_LOCK_TTL" default:"5m"`
	// HoldOnCapture places order payments in escrow as soon as the webhook captures them.
	HoldOnCapture bool `envconfig:"SETTLEMENT_ESCROW_HOLD_ON_CAPTURE" default:"true"`
}

type OrderConfig struct {
	// PendingTTL is how long an unpaid order keeps its stock reserved.
	PendingTTL time.Duration `envconfig:"SETTLEMENT_ORDER_PENDING_TTL" default:"72h"`
}

type FrontendConfig struct {
	BaseURL string `envconfig:"SETTLEMENT_FRONTEND_URL" default:"http://localhost:3000"`
}

// SuccessURL is the checkout return page; the gateway substitutes the session id.
func (f FrontendConfig) SuccessURL() string {
	return strings.TrimRight(f.BaseURL, "/") + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
}

func (f FrontendConfig) CancelURL() string {
	return strings.TrimRight(f.BaseURL, "/") + "/payment/cancel"
}

// RateLimitConfig throttles the endpoints that reach the payment gateway.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"SETTLEMENT_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutLimit int           `envconfig:"SETTLEMENT_RATE_LIMIT_CHECKOUT" default:"10"`
}

type NotificationConfig struct {
	Transport      string        `envconfig:"SETTLEMENT_NOTIFICATION_TRANSPORT" default:"log"`
	RetentionDays  int           `envconfig:"SETTLEMENT_NOTIFICATION_RETENTION_DAYS" default:"30"`
	PublishTimeout time.Duration `envconfig:"SETTLEMENT_NOTIFICATION_PUBLISH_TIMEOUT" default:"5s"`
}

func (n NotificationConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(n.Transport)) {
	case NotificationTransportLog, NotificationTransportPubSub, NotificationTransportKafka:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvNotificationTransport,
			NotificationTransportLog, NotificationTransportPubSub, NotificationTransportKafka)
	}
}

type PubSubConfig struct {
	ProjectID         string `envconfig:"SETTLEMENT_GCP_PROJECT_ID"`
	NotificationTopic string `envconfig:"SETTLEMENT_PUBSUB_NOTIFICATION_TOPIC" default:"settlement-notifications"`
}

type KafkaConfig struct {
	Brokers           []string `envconfig:"SETTLEMENT_KAFKA_BROKERS"`
	NotificationTopic string   `envconfig:"SETTLEMENT_KAFKA_NOTIFICATION_TOPIC" default:"settlement.notifications"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SETTLEMENT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
