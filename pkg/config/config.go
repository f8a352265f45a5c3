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
	AuthRateLimit AuthRateLimitConfig
	Throttle      ThrottleConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Usage         UsageConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Usage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUPPLYDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"SUPPLYDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUPPLYDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUPPLYDESK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SUPPLYDESK_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUPPLYDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"SUPPLYDESK_DB_DSN"`
	SQLitePath string `envconfig:"SUPPLYDESK_SQLITE_PATH" default:"supplydesk.db"`
	// SlowQueryThreshold logs statements slower than this at warn level.
	SlowQueryThreshold time.Duration `envconfig:"SUPPLYDESK_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`

	LegacyHost     string `envconfig:"SUPPLYDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPPLYDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPPLYDESK_DB_USER"`
	LegacyPassword string `envconfig:"SUPPLYDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPPLYDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPPLYDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPPLYDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPPLYDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPPLYDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPPLYDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPPLYDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUPPLYDESK_REDIS_ADDR"`
	Password     string        `envconfig:"SUPPLYDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPPLYDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPPLYDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPPLYDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPPLYDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPPLYDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPPLYDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SUPPLYDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SUPPLYDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SUPPLYDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SUPPLYDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SUPPLYDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SUPPLYDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SUPPLYDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SUPPLYDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SUPPLYDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SUPPLYDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"SUPPLYDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"SUPPLYDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

// ThrottleConfig bounds authenticated API traffic per caller. Rate uses the
// "<limit>-<period>" format, e.g. "600-M" or "20-S". Empty disables it.
type ThrottleConfig struct {
	Rate string `envconfig:"SUPPLYDESK_API_RATE" default:"600-M"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SUPPLYDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SUPPLYDESK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SUPPLYDESK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// UsageConfig controls how the monthly quota check aggregates usage.
type UsageConfig struct {
	CountingMode string `envconfig:"SUPPLYDESK_USAGE_COUNTING_MODE" default:"inflight"`
	TimeZone     string `envconfig:"SUPPLYDESK_USAGE_TIMEZONE" default:"UTC"`
}

// Location resolves the time zone that defines calendar month boundaries.
func (u UsageConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(u.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (u UsageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(u.CountingMode)) {
	case "", UsageCountingInflight, UsageCountingPendingOnly:
	default:
		return fmt.Errorf("invalid %s %q", EnvUsageCountingMode, u.CountingMode)
	}
	if _, err := u.Location(); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvUsageTimeZone, err)
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"SUPPLYDESK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	RequestsTopic            string `envconfig:"SUPPLYDESK_PUBSUB_REQUESTS_TOPIC" default:"supplydesk-request-events"`
	InventoryTopic           string `envconfig:"SUPPLYDESK_PUBSUB_INVENTORY_TOPIC" default:"supplydesk-inventory-events"`
	InventorySubscription    string `envconfig:"SUPPLYDESK_PUBSUB_INVENTORY_SUBSCRIPTION" default:"supplydesk-inventory-worker"`
	NotificationTopic        string `envconfig:"SUPPLYDESK_PUBSUB_NOTIFICATION_TOPIC" default:"supplydesk-notification-events"`
	NotificationSubscription string `envconfig:"SUPPLYDESK_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"SUPPLYDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"SUPPLYDESK_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxBackoff     time.Duration `envconfig:"SUPPLYDESK_OUTBOX_MAX_BACKOFF" default:"10s"`
	PublishTimeout time.Duration `envconfig:"SUPPLYDESK_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"SUPPLYDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"SUPPLYDESK_CRON_INTERVAL" default:"1h"`
	LockTTL                  time.Duration `envconfig:"SUPPLYDESK_CRON_LOCK_TTL" default:"10m"`
	JobTimeout               time.Duration `envconfig:"SUPPLYDESK_CRON_JOB_TIMEOUT" default:"5m"`
	ReadNotificationMaxAge   time.Duration `envconfig:"SUPPLYDESK_CRON_READ_NOTIFICATION_MAX_AGE" default:"720h"`
	NotificationMaxAge       time.Duration `envconfig:"SUPPLYDESK_CRON_NOTIFICATION_MAX_AGE" default:"2160h"`
	PublishedOutboxRetention time.Duration `envconfig:"SUPPLYDESK_CRON_OUTBOX_RETENTION" default:"168h"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"SUPPLYDESK_CORS_ALLOWED_ORIGINS" default:"*"`
	MaxAge         time.Duration `envconfig:"SUPPLYDESK_CORS_MAX_AGE" default:"5m"`
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
