package config

const EnvPrefix = "KS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	CartStoreRedis = "redis"
	CartStoreSQL   = "sql"

	TaxModeIntra = "intra"
	TaxModeInter = "inter"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv        = "KS_APP_ENV"
	EnvPort          = "KS_APP_PORT"
	EnvAPIBaseURL    = "KS_API_BASE_URL"
	EnvCartStore     = "KS_CART_STORE"
	EnvCartTaxMode   = "KS_CART_TAX_MODE"
	EnvDBDSN         = "KS_DB_DSN"
	EnvDBDriver      = "KS_DB_DRIVER"
	EnvDBHost        = "KS_DB_HOST"
	EnvDBUser        = "KS_DB_USER"
	EnvDBName        = "KS_DB_NAME"
	EnvDBPassword    = "KS_DB_PASSWORD"
	EnvRedisURL      = "KS_REDIS_URL"
	EnvSessionSecret = "KS_SESSION_SECRET"
	EnvSyncEnabled   = "KS_SYNC_ENABLED"
)

var hostDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
