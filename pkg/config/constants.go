package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "GIGESCROW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv              = "GIGESCROW_APP_ENV"
	EnvPort                = "GIGESCROW_APP_PORT"
	EnvLogLevel            = "GIGESCROW_LOG_LEVEL"
	EnvDBDSN               = "GIGESCROW_DB_DSN"
	EnvDBHost              = "GIGESCROW_DB_HOST"
	EnvDBUser              = "GIGESCROW_DB_USER"
	EnvDBName              = "GIGESCROW_DB_NAME"
	EnvDBTxIsolation       = "GIGESCROW_DB_TX_ISOLATION"
	EnvRedisURL            = "GIGESCROW_REDIS_URL"
	EnvJWTSecret           = "GIGESCROW_JWT_SECRET"
	EnvJWTIssuer           = "GIGESCROW_JWT_ISSUER"
	EnvUseSQLite           = "GIGESCROW_USE_SQLITE"
	EnvCommissionPercent   = "GIGESCROW_COMMISSION_PERCENT"
	EnvViewedCategoryLimit = "GIGESCROW_VIEWED_CATEGORY_LIMIT"
	EnvOutboxBatchSize     = "GIGESCROW_OUTBOX_PUBLISH_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
