package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Escrow       EscrowConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Escrow.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIGESCROW_APP_ENV" required:"true"`
	Port         string `envconfig:"GIGESCROW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIGESCROW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIGESCROW_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `envconfig:"GIGESCROW_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"GIGESCROW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIGESCROW_DB_DSN"`
	Driver string `envconfig:"GIGESCROW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIGESCROW_DB_HOST"`
	LegacyPort     int    `envconfig:"GIGESCROW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIGESCROW_DB_USER"`
	LegacyPassword string `envconfig:"GIGESCROW_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIGESCROW_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIGESCROW_DB_SSLMODE" default:"disable"`

	// TxIsolation is applied to every money-moving transaction.
	TxIsolation string `envconfig:"GIGESCROW_DB_TX_ISOLATION" default:"read_committed"`

	MaxOpenConns    int           `envconfig:"GIGESCROW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIGESCROW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIGESCROW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIGESCROW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsolationLevel maps TxIsolation onto database/sql levels. Unknown values
// fall back to the driver default.
func (db DBConfig) IsolationLevel() sql.IsolationLevel {
	switch strings.ToLower(strings.TrimSpace(db.TxIsolation)) {
	case "read_committed":
		return sql.LevelReadCommitted
	case "repeatable_read":
		return sql.LevelRepeatableRead
	case "serializable":
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"GIGESCROW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIGESCROW_REDIS_ADDR"`
	Password     string        `envconfig:"GIGESCROW_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIGESCROW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIGESCROW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIGESCROW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIGESCROW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIGESCROW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIGESCROW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIGESCROW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIGESCROW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIGESCROW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIGESCROW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIGESCROW_AUTO_MIGRATE" default:"false"`
}

type EscrowConfig struct {
	CommissionPercent   decimal.Decimal `envconfig:"GIGESCROW_COMMISSION_PERCENT" default:"10"`
	ViewedCategoryLimit int             `envconfig:"GIGESCROW_VIEWED_CATEGORY_LIMIT" default:"20"`
}

func (e EscrowConfig) validate() error {
	if e.CommissionPercent.IsNegative() || e.CommissionPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvCommissionPercent)
	}
	if e.ViewedCategoryLimit <= 0 {
		return fmt.Errorf("%s must be positive", EnvViewedCategoryLimit)
	}
	return nil
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GIGESCROW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GIGESCROW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GIGESCROW_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig bounds money-moving writes per caller. A zero limit
// disables that counter.
type RateLimitConfig struct {
	Window    time.Duration `envconfig:"GIGESCROW_WRITE_RATE_WINDOW" default:"1m"`
	UserLimit int           `envconfig:"GIGESCROW_WRITE_RATE_USER_LIMIT" default:"30"`
	IPLimit   int           `envconfig:"GIGESCROW_WRITE_RATE_IP_LIMIT" default:"120"`
}

type MetricsConfig struct {
	WorkerAddr string `envconfig:"GIGESCROW_METRICS_WORKER_ADDR" default:":9091"`
	// APIPath exposes the API process registry on the main listener.
	APIPath string `envconfig:"GIGESCROW_METRICS_API_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:gigescrow.db?cache=shared"
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
