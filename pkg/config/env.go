package config

// EnvPrefix is passed to envconfig; every field carries an explicit key so it only
// matters for envconfig's usage output.
const EnvPrefix = "MICROIP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageBackendMemory = "memory"
	StorageBackendRedis  = "redis"
	StorageBackendSQL    = "sql"
)

const (
	EnvAppEnv         = "MICROIP_APP_ENV"
	EnvPort           = "MICROIP_APP_PORT"
	EnvSessionSecret  = "MICROIP_SESSION_SECRET"
	EnvStorageBackend = "MICROIP_STORAGE_BACKEND"
	EnvRedisURL       = "MICROIP_REDIS_URL"
	EnvRedisAddr      = "MICROIP_REDIS_ADDR"
	EnvDBDSN          = "MICROIP_DB_DSN"
	EnvDBHost         = "MICROIP_DB_HOST"
	EnvDBUser         = "MICROIP_DB_USER"
	EnvDBName         = "MICROIP_DB_NAME"
	EnvUseSQLite      = "MICROIP_USE_SQLITE"
	EnvStripeAPIKey   = "MICROIP_STRIPE_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
