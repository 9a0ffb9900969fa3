package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CONVEXA_DB_DSN"
	EnvDBHost = "CONVEXA_DB_HOST"
	EnvDBUser = "CONVEXA_DB_USER"
	EnvDBName = "CONVEXA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Billing      BillingConfig
	Cron         CronConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONVEXA_APP_ENV" required:"true"`
	Port         string `envconfig:"CONVEXA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONVEXA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONVEXA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CONVEXA_DB_DSN"`
	Driver string `envconfig:"CONVEXA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONVEXA_DB_HOST"`
	LegacyPort     int    `envconfig:"CONVEXA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONVEXA_DB_USER"`
	LegacyPassword string `envconfig:"CONVEXA_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONVEXA_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONVEXA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONVEXA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONVEXA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONVEXA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONVEXA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	OpTimeout     time.Duration `envconfig:"CONVEXA_DB_OP_TIMEOUT" default:"5s"`
	RetryAttempts int           `envconfig:"CONVEXA_DB_RETRY_ATTEMPTS" default:"1"`
	RetryBackoff  time.Duration `envconfig:"CONVEXA_DB_RETRY_BACKOFF" default:"100ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONVEXA_REDIS_URL"`
	Address      string        `envconfig:"CONVEXA_REDIS_ADDR"`
	Password     string        `envconfig:"CONVEXA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONVEXA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONVEXA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONVEXA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONVEXA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONVEXA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONVEXA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CONVEXA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CONVEXA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CONVEXA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// BillingConfig tunes the invoice lifecycle and coupon issuance.
type BillingConfig struct {
	// OverdueGracePeriod is added to an invoice's period start to derive its
	// implicit due date. Past that point a pending invoice becomes overdue.
	OverdueGracePeriod time.Duration `envconfig:"CONVEXA_BILLING_OVERDUE_GRACE_PERIOD" default:"240h"`
	CouponPrefix       string        `envconfig:"CONVEXA_BILLING_COUPON_PREFIX" default:"CVX"`
	CouponMaxRetries   int           `envconfig:"CONVEXA_BILLING_COUPON_MAX_RETRIES" default:"3"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"CONVEXA_CRON_INTERVAL" default:"1h"`
	LockTTL     time.Duration `envconfig:"CONVEXA_CRON_LOCK_TTL" default:"10m"`
	MetricsPort string        `envconfig:"CONVEXA_CRON_METRICS_PORT" default:"9091"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CONVEXA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CONVEXA_AUTO_MIGRATE" default:"false"`
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
