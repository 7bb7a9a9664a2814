package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Inventory     InventoryConfig
	Orders        OrdersConfig
	Notifications NotificationsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LITERATURE_APP_ENV" required:"true"`
	Port         string `envconfig:"LITERATURE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LITERATURE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LITERATURE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LITERATURE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"LITERATURE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, part := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"LITERATURE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LITERATURE_DB_DSN"`
	Driver string `envconfig:"LITERATURE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LITERATURE_DB_HOST"`
	Port     int    `envconfig:"LITERATURE_DB_PORT" default:"5432"`
	User     string `envconfig:"LITERATURE_DB_USER"`
	Password string `envconfig:"LITERATURE_DB_PASSWORD"`
	Name     string `envconfig:"LITERATURE_DB_NAME"`
	SSLMode  string `envconfig:"LITERATURE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LITERATURE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LITERATURE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LITERATURE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LITERATURE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LITERATURE_REDIS_URL"`
	Address      string        `envconfig:"LITERATURE_REDIS_ADDR"`
	Password     string        `envconfig:"LITERATURE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LITERATURE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LITERATURE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LITERATURE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LITERATURE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LITERATURE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LITERATURE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LITERATURE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LITERATURE_JWT_ISSUER" default:"literature-backend"`
	ExpirationMinutes      int    `envconfig:"LITERATURE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"LITERATURE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LITERATURE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LITERATURE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LITERATURE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LITERATURE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LITERATURE_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"LITERATURE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"LITERATURE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"LITERATURE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OrgWriteWindow  time.Duration `envconfig:"LITERATURE_RATE_LIMIT_ORG_WRITE_WINDOW" default:"1m"`
	OrgWriteLimit   int           `envconfig:"LITERATURE_RATE_LIMIT_ORG_WRITE_LIMIT" default:"300"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LITERATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"LITERATURE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"LITERATURE_PUBSUB_ORDERS_TOPIC" default:"literature-order-events"`
	NotificationTopic string `envconfig:"LITERATURE_PUBSUB_NOTIFICATION_TOPIC" default:"literature-notification-events"`
	InventoryTopic    string `envconfig:"LITERATURE_PUBSUB_INVENTORY_TOPIC" default:"literature-inventory-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LITERATURE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LITERATURE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LITERATURE_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// OrderedDelivery publishes with per-aggregate ordering keys.
	OrderedDelivery bool `envconfig:"LITERATURE_OUTBOX_ORDERED_DELIVERY" default:"true"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"LITERATURE_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
}

type OrdersConfig struct {
	NumberRetries int `envconfig:"LITERATURE_ORDERS_NUMBER_RETRIES" default:"3"`
}

// NotificationsConfig bounds background dispatch after an order transition.
type NotificationsConfig struct {
	DispatchTimeout time.Duration `envconfig:"LITERATURE_NOTIFICATIONS_DISPATCH_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Tick                 time.Duration `envconfig:"LITERATURE_CRON_TICK" default:"15m"`
	LowStockInterval     time.Duration `envconfig:"LITERATURE_CRON_LOW_STOCK_INTERVAL" default:"6h"`
	PendingOrderInterval time.Duration `envconfig:"LITERATURE_CRON_PENDING_ORDER_INTERVAL" default:"12h"`
	PendingOrderMaxAge   time.Duration `envconfig:"LITERATURE_CRON_PENDING_ORDER_MAX_AGE" default:"12h"`
	LockTTL              time.Duration `envconfig:"LITERATURE_CRON_LOCK_TTL" default:"30m"`
	MetricsAddr          string        `envconfig:"LITERATURE_CRON_METRICS_ADDR" default:":9102"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dsnPartEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
