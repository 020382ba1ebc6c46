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
	Session      SessionConfig
	Storage      StorageConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Scheduling   SchedulingConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend() {
	case StorageBackendMemory:
	case StorageBackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s=redis requires %s or %s", EnvStorageBackend, EnvRedisURL, EnvRedisAddr)
		}
	case StorageBackendSQL:
		if c.FeatureFlags.UseSQLite {
			return nil
		}
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvStorageBackend, StorageBackendMemory, StorageBackendRedis, StorageBackendSQL)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"MICROIP_APP_ENV" required:"true"`
	Port         string `envconfig:"MICROIP_APP_PORT" required:"true"`
	Version      string `envconfig:"MICROIP_APP_VERSION" default:"1.0.0"`
	LogLevel     string `envconfig:"MICROIP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MICROIP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// SessionConfig controls the signed visitor cookies: a short-lived session (cart,
// checkout, consultation flag) and a long-lived visitor id (wishlist).
type SessionConfig struct {
	Secret     string        `envconfig:"MICROIP_SESSION_SECRET" required:"true"`
	Issuer     string        `envconfig:"MICROIP_SESSION_ISSUER" default:"micro-ip-storefront"`
	CookieName string        `envconfig:"MICROIP_SESSION_COOKIE" default:"mip_session"`
	TTL        time.Duration `envconfig:"MICROIP_SESSION_TTL" default:"12h"`
	Secure     bool          `envconfig:"MICROIP_SESSION_SECURE" default:"true"`

	VisitorCookieName string        `envconfig:"MICROIP_VISITOR_COOKIE" default:"mip_visitor"`
	VisitorTTL        time.Duration `envconfig:"MICROIP_VISITOR_TTL" default:"8760h"`
}

const (
	defaultVisitorCookie = "mip_visitor"
	defaultVisitorTTL    = 365 * 24 * time.Hour
)

// VisitorCookie returns the visitor cookie name, defaulting to mip_visitor.
func (s SessionConfig) VisitorCookie() string {
	if name := strings.TrimSpace(s.VisitorCookieName); name != "" {
		return name
	}
	return defaultVisitorCookie
}

// VisitorLifetime returns how long a visitor id lives after its last renewal.
func (s SessionConfig) VisitorLifetime() time.Duration {
	if s.VisitorTTL > 0 {
		return s.VisitorTTL
	}
	return defaultVisitorTTL
}

type StorageConfig struct {
	Kind string `envconfig:"MICROIP_STORAGE_BACKEND" default:"memory"`
}

// Backend returns the normalized storage backend name.
func (s StorageConfig) Backend() string {
	kind := strings.TrimSpace(strings.ToLower(s.Kind))
	if kind == "" {
		return StorageBackendMemory
	}
	return kind
}

type DBConfig struct {
	DSN    string `envconfig:"MICROIP_DB_DSN"`
	Driver string `envconfig:"MICROIP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MICROIP_DB_HOST"`
	LegacyPort     int    `envconfig:"MICROIP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MICROIP_DB_USER"`
	LegacyPassword string `envconfig:"MICROIP_DB_PASSWORD"`
	LegacyName     string `envconfig:"MICROIP_DB_NAME"`
	LegacySSLMode  string `envconfig:"MICROIP_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MICROIP_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"MICROIP_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MICROIP_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"MICROIP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MICROIP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MICROIP_REDIS_URL"`
	Address      string        `envconfig:"MICROIP_REDIS_ADDR"`
	Password     string        `envconfig:"MICROIP_REDIS_PASSWORD"`
	DB           int           `envconfig:"MICROIP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MICROIP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MICROIP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MICROIP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MICROIP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MICROIP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis connection settings were supplied.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MICROIP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MICROIP_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey          string `envconfig:"MICROIP_STRIPE_API_KEY"`
	Env             string `envconfig:"MICROIP_STRIPE_ENV" default:"test"`
	DefaultCurrency string `envconfig:"MICROIP_STRIPE_DEFAULT_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Currency returns the lower-cased default currency, falling back to usd.
func (s StripeConfig) Currency() string {
	currency := strings.TrimSpace(strings.ToLower(s.DefaultCurrency))
	if currency == "" {
		return "usd"
	}
	return currency
}

type SchedulingConfig struct {
	Provider       string        `envconfig:"MICROIP_SCHEDULING_PROVIDER" default:"calendly"`
	URL            string        `envconfig:"MICROIP_SCHEDULING_URL" default:"https://calendly.com/micro-ip/consultation"`
	ReadyAttempts  int           `envconfig:"MICROIP_SCHEDULING_READY_ATTEMPTS" default:"10"`
	ReadyInterval  time.Duration `envconfig:"MICROIP_SCHEDULING_READY_INTERVAL" default:"500ms"`
	ProbeTimeout   time.Duration `envconfig:"MICROIP_SCHEDULING_PROBE_TIMEOUT" default:"3s"`
	SkipReadyProbe bool          `envconfig:"MICROIP_SCHEDULING_SKIP_READY_PROBE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MICROIP_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type RateLimitConfig struct {
	PaymentWindow time.Duration `envconfig:"MICROIP_RATE_LIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentLimit  int           `envconfig:"MICROIP_RATE_LIMIT_PAYMENT_LIMIT" default:"20"`
}

// MaintenanceConfig sets the cadence of the in-process sweeps.
type MaintenanceConfig struct {
	SweepInterval time.Duration `envconfig:"MICROIP_MAINTENANCE_SWEEP_INTERVAL" default:"1m"`
	PurgeInterval time.Duration `envconfig:"MICROIP_MAINTENANCE_PURGE_INTERVAL" default:"15m"`
	LockTTL       time.Duration `envconfig:"MICROIP_MAINTENANCE_LOCK_TTL" default:"10m"`
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
