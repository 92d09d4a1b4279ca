package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	RelayNone  = "none"
	RelayRedis = "redis"
	RelayAMQP  = "amqp"
)

const (
	EnvAppEnv          = "FEASTFLOW_APP_ENV"
	EnvPort            = "FEASTFLOW_APP_PORT"
	EnvDBDSN           = "FEASTFLOW_DB_DSN"
	EnvDBHost          = "FEASTFLOW_DB_HOST"
	EnvDBUser          = "FEASTFLOW_DB_USER"
	EnvDBName          = "FEASTFLOW_DB_NAME"
	EnvStoreBackend    = "FEASTFLOW_STORE_BACKEND"
	EnvRedisURL        = "FEASTFLOW_REDIS_URL"
	EnvRedisAddr       = "FEASTFLOW_REDIS_ADDR"
	EnvAMQPURL         = "FEASTFLOW_AMQP_URL"
	EnvJWTSecret       = "FEASTFLOW_JWT_SECRET"
	EnvJWTIssuer       = "FEASTFLOW_JWT_ISSUER"
	EnvEventsRelay     = "FEASTFLOW_EVENTS_RELAY"
	EnvEventsHeartbeat = "FEASTFLOW_EVENTS_HEARTBEAT_INTERVAL"
	EnvGroupCodeLength = "FEASTFLOW_GROUP_CODE_LENGTH"
	EnvUseSQLite       = "FEASTFLOW_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
