package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Store    StoreConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	JWT      JWTConfig
	Events   EventsConfig
	Orders   OrdersConfig
	Groups   GroupsConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesDatabase() && !cfg.Features.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Events.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FEASTFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"FEASTFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FEASTFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FEASTFLOW_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"FEASTFLOW_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"FEASTFLOW_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN        string `envconfig:"FEASTFLOW_DB_DSN"`
	SQLitePath string `envconfig:"FEASTFLOW_SQLITE_PATH" default:"feastflow.db"`

	LegacyHost     string `envconfig:"FEASTFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"FEASTFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FEASTFLOW_DB_USER"`
	LegacyPassword string `envconfig:"FEASTFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"FEASTFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"FEASTFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FEASTFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FEASTFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FEASTFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FEASTFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// StoreConfig selects the order and group storage backend once per process.
type StoreConfig struct {
	Backend string `envconfig:"FEASTFLOW_STORE_BACKEND" default:"postgres"`
}

// UsesDatabase reports whether the durable gorm backend is selected.
func (s StoreConfig) UsesDatabase() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), StoreBackendPostgres)
}

func (s StoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StoreBackendPostgres, StoreBackendMemory:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s|%s, got %q", EnvStoreBackend, StoreBackendPostgres, StoreBackendMemory, s.Backend)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"FEASTFLOW_REDIS_URL"`
	Address      string        `envconfig:"FEASTFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"FEASTFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"FEASTFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FEASTFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FEASTFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FEASTFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FEASTFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FEASTFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type AMQPConfig struct {
	URL      string `envconfig:"FEASTFLOW_AMQP_URL"`
	Exchange string `envconfig:"FEASTFLOW_AMQP_EXCHANGE" default:"feastflow.events"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FEASTFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FEASTFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FEASTFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type EventsConfig struct {
	HeartbeatInterval time.Duration `envconfig:"FEASTFLOW_EVENTS_HEARTBEAT_INTERVAL" default:"15s"`
	SubscriberBuffer  int           `envconfig:"FEASTFLOW_EVENTS_SUBSCRIBER_BUFFER" default:"32"`
	Relay             string        `envconfig:"FEASTFLOW_EVENTS_RELAY" default:"none"`
	RelayChannel      string        `envconfig:"FEASTFLOW_EVENTS_RELAY_CHANNEL" default:"feastflow:events"`
	RelayBuffer       int           `envconfig:"FEASTFLOW_EVENTS_RELAY_BUFFER" default:"256"`
}

func (e EventsConfig) validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(e.Relay)) {
	case RelayNone:
	case RelayRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("%s=redis requires %s or %s", EnvEventsRelay, EnvRedisURL, EnvRedisAddr)
		}
	case RelayAMQP:
		if strings.TrimSpace(cfg.AMQP.URL) == "" {
			return fmt.Errorf("%s=amqp requires %s", EnvEventsRelay, EnvAMQPURL)
		}
	default:
		return fmt.Errorf("%s must be one of %s|%s|%s, got %q", EnvEventsRelay, RelayNone, RelayRedis, RelayAMQP, e.Relay)
	}
	if e.HeartbeatInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvEventsHeartbeat)
	}
	return nil
}

type OrdersConfig struct {
	CodeRetries int `envconfig:"FEASTFLOW_ORDER_CODE_RETRIES" default:"5"`
}

// GroupsConfig controls room code generation.
type GroupsConfig struct {
	CodeLength         int `envconfig:"FEASTFLOW_GROUP_CODE_LENGTH" default:"6"`
	CodeRetries        int `envconfig:"FEASTFLOW_GROUP_CODE_RETRIES" default:"5"`
	CodeFallbackLength int `envconfig:"FEASTFLOW_GROUP_CODE_FALLBACK_LENGTH" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FEASTFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FEASTFLOW_AUTO_MIGRATE" default:"false"`
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
