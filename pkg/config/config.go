package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App             AppConfig
	API             APIConfig
	Cart            CartConfig
	Sync            SyncConfig
	DB              DBConfig
	Redis           RedisConfig
	Session         SessionConfig
	CouponRateLimit CouponRateLimitConfig
	Janitor         JanitorConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.UsesSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KS_APP_ENV" required:"true"`
	Port         string `envconfig:"KS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"KS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KS_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"KS_AUTO_MIGRATE" default:"false"`

	CORSAllowedOrigins []string `envconfig:"KS_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points at the remote King Shoppers API.
type APIConfig struct {
	BaseURL string        `envconfig:"KS_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"KS_API_TIMEOUT" default:"10s"`
}

type CartConfig struct {
	Store    string        `envconfig:"KS_CART_STORE" default:"redis"`
	TTL      time.Duration `envconfig:"KS_CART_TTL" default:"720h"`
	TaxMode  string        `envconfig:"KS_CART_TAX_MODE" default:"intra"`
	Currency string        `envconfig:"KS_CART_CURRENCY" default:"INR"`
	Locale   string        `envconfig:"KS_CART_LOCALE" default:"en-IN"`
}

// UsesSQL reports whether carts are persisted through the SQL store.
func (c CartConfig) UsesSQL() bool {
	return strings.EqualFold(strings.TrimSpace(c.Store), CartStoreSQL)
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Store)) {
	case CartStoreRedis, CartStoreSQL:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartStore, CartStoreRedis, CartStoreSQL)
	}
	switch strings.ToLower(strings.TrimSpace(c.TaxMode)) {
	case TaxModeIntra, TaxModeInter:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartTaxMode, TaxModeIntra, TaxModeInter)
	}
	return nil
}

type SyncConfig struct {
	Enabled   bool          `envconfig:"KS_SYNC_ENABLED" default:"true"`
	QueueSize int           `envconfig:"KS_SYNC_QUEUE_SIZE" default:"256"`
	Timeout   time.Duration `envconfig:"KS_SYNC_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	DSN    string `envconfig:"KS_DB_DSN"`
	Driver string `envconfig:"KS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"KS_DB_HOST"`
	Port     int    `envconfig:"KS_DB_PORT" default:"5432"`
	User     string `envconfig:"KS_DB_USER"`
	Password string `envconfig:"KS_DB_PASSWORD"`
	Name     string `envconfig:"KS_DB_NAME"`
	SSLMode  string `envconfig:"KS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"KS_REDIS_URL"`
	Address      string        `envconfig:"KS_REDIS_ADDR"`
	Password     string        `envconfig:"KS_REDIS_PASSWORD"`
	DB           int           `envconfig:"KS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig signs the cart session cookie.
type SessionConfig struct {
	Secret     string        `envconfig:"KS_SESSION_SECRET" required:"true"`
	Issuer     string        `envconfig:"KS_SESSION_ISSUER" default:"kingshoppers-storefront"`
	CookieName string        `envconfig:"KS_SESSION_COOKIE" default:"ks_cart"`
	TTL        time.Duration `envconfig:"KS_SESSION_TTL" default:"720h"`
	Secure     bool          `envconfig:"KS_SESSION_SECURE" default:"true"`
}

type CouponRateLimitConfig struct {
	Window       time.Duration `envconfig:"KS_COUPON_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit      int           `envconfig:"KS_COUPON_RATE_LIMIT_IP_LIMIT" default:"30"`
	SessionLimit int           `envconfig:"KS_COUPON_RATE_LIMIT_SESSION_LIMIT" default:"10"`
}

// JanitorConfig drives the cart-janitor process that purges abandoned SQL carts.
type JanitorConfig struct {
	Interval    time.Duration `envconfig:"KS_JANITOR_INTERVAL" default:"1h"`
	Retention   time.Duration `envconfig:"KS_JANITOR_RETENTION" default:"720h"`
	LockTTL     time.Duration `envconfig:"KS_JANITOR_LOCK_TTL" default:"55m"`
	MetricsPort string        `envconfig:"KS_JANITOR_METRICS_PORT" default:"9102"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range hostDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
