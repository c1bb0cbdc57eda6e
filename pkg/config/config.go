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
	FeatureFlags FeatureFlagsConfig
	Carrier      CarrierConfig
	Confirmation ConfirmationConfig
	Sweep        SweepConfig
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
	Env          string `envconfig:"KARAKOU_APP_ENV" required:"true"`
	Port         string `envconfig:"KARAKOU_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KARAKOU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KARAKOU_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KARAKOU_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KARAKOU_DB_DSN"`
	Driver string `envconfig:"KARAKOU_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KARAKOU_DB_HOST"`
	LegacyPort     int    `envconfig:"KARAKOU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KARAKOU_DB_USER"`
	LegacyPassword string `envconfig:"KARAKOU_DB_PASSWORD"`
	LegacyName     string `envconfig:"KARAKOU_DB_NAME"`
	LegacySSLMode  string `envconfig:"KARAKOU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KARAKOU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KARAKOU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KARAKOU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KARAKOU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KARAKOU_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KARAKOU_REDIS_ADDR"`
	Password     string        `envconfig:"KARAKOU_REDIS_PASSWORD"`
	DB           int           `envconfig:"KARAKOU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KARAKOU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KARAKOU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KARAKOU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KARAKOU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KARAKOU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KARAKOU_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KARAKOU_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KARAKOU_JWT_EXPIRATION_MINUTES" default:"480"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KARAKOU_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KARAKOU_AUTO_MIGRATE" default:"false"`
}

// CarrierConfig holds the shipping provider credentials and client limits.
type CarrierConfig struct {
	BaseURL        string        `envconfig:"KARAKOU_CARRIER_BASE_URL" required:"true"`
	APIID          string        `envconfig:"KARAKOU_CARRIER_API_ID" required:"true"`
	APIToken       string        `envconfig:"KARAKOU_CARRIER_API_TOKEN" required:"true"`
	RequestTimeout time.Duration `envconfig:"KARAKOU_CARRIER_REQUEST_TIMEOUT" default:"10s"`
	MaxAttempts    int           `envconfig:"KARAKOU_CARRIER_MAX_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"KARAKOU_CARRIER_RETRY_BACKOFF" default:"500ms"`
}

// ConfirmationConfig tunes the call-center workflow.
type ConfirmationConfig struct {
	UnreachableAfter time.Duration `envconfig:"KARAKOU_CONFIRMATION_UNREACHABLE_AFTER" default:"48h"`
}

// SweepConfig tunes the background worker cadence.
type SweepConfig struct {
	Interval time.Duration `envconfig:"KARAKOU_SWEEP_INTERVAL" default:"15m"`
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
