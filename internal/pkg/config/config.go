package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, secrets, etc.)
// - default: Values common across all environments (timeouts, TTLs, etc.)
// -----------------------------------------------------------------------------

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Store       StoreConfig
	Ledger      LedgerConfig
	Redis       RedisConfig
	Payment     PaymentConfig
	Catalog     CatalogConfig
	AMQP        AMQPConfig
	Idempotency IdempotencyConfig
	CORS        CORSConfig
	Log         LogConfig
	JWT         JWTConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"transit"`
	Password string `envconfig:"DB_PASSWORD" default:""`
	DBName   string `envconfig:"DB_NAME" default:"transit_booking"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Asia/Kolkata"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type StoreConfig struct {
	// memory | postgres
	Driver string `envconfig:"STORE_DRIVER" default:"memory"`
}

type LedgerConfig struct {
	// memory | postgres | redis
	Driver        string        `envconfig:"LEDGER_DRIVER" default:"memory"`
	HoldTTL       time.Duration `envconfig:"HOLD_TTL" default:"10m"`
	SweepInterval time.Duration `envconfig:"HOLD_SWEEP_INTERVAL" default:"30s"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"REDIS_KEY_PREFIX" default:"transit"`
}

type PaymentConfig struct {
	Timeout                   time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"30s"`
	Currency                  string        `envconfig:"PAYMENT_CURRENCY" default:"INR"`
	WalletInitialBalanceCents int64         `envconfig:"WALLET_INITIAL_BALANCE_CENTS" default:"250000"`
	WalletMaxTopUpCents       int64         `envconfig:"WALLET_MAX_TOPUP_CENTS" default:"10000000"`
	CardLatency               time.Duration `envconfig:"CARD_LATENCY" default:"800ms"`
	CardLimitCents            int64         `envconfig:"CARD_LIMIT_CENTS" default:"20000000"`
	UPILatency                time.Duration `envconfig:"UPI_LATENCY" default:"2s"`
	UPILimitCents             int64         `envconfig:"UPI_LIMIT_CENTS" default:"10000000"`
	UPIPollInterval           time.Duration `envconfig:"UPI_POLL_INTERVAL" default:"500ms"`
	StripeSecretKey           string        `envconfig:"STRIPE_SECRET_KEY" default:""`
}

type CatalogConfig struct {
	// search dates are calendar days in this zone
	TimeZone       string `envconfig:"CATALOG_TIMEZONE" default:"Asia/Kolkata"`
	TimeZoneOffset int    `envconfig:"CATALOG_TIMEZONE_OFFSET" default:"19800"`
	SeedDays       int    `envconfig:"CATALOG_SEED_DAYS" default:"30"`
}

// Location falls back to a fixed offset when the tz database is unavailable.
func (c CatalogConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		return loc
	}
	return time.FixedZone(c.TimeZone, c.TimeZoneOffset)
}

type AMQPConfig struct {
	// empty URL disables the broker and events are only logged
	URL      string `envconfig:"AMQP_URL" default:""`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`
}

type IdempotencyConfig struct {
	TTL           time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	PurgeInterval time.Duration `envconfig:"IDEMPOTENCY_PURGE_INTERVAL" default:"10m"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length,Location"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Asia/Kolkata"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"19800"` // 5.5*60*60
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"24h"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// NeedsPostgres reports whether any configured component is backed by Postgres.
func (c Config) NeedsPostgres() bool {
	return c.Store.Driver == DriverPostgres || c.Ledger.Driver == DriverPostgres
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Ledger.Driver {
	case DriverMemory, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unsupported LEDGER_DRIVER %q", c.Ledger.Driver)
	}
	if c.Ledger.Driver == DriverPostgres && c.Store.Driver != DriverPostgres {
		return fmt.Errorf("LEDGER_DRIVER=postgres requires STORE_DRIVER=postgres")
	}
	if c.Ledger.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be positive")
	}
	if c.Ledger.SweepInterval <= 0 || c.Idempotency.PurgeInterval <= 0 {
		return fmt.Errorf("HOLD_SWEEP_INTERVAL and IDEMPOTENCY_PURGE_INTERVAL must be positive")
	}
	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}
	return nil
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Asia/Kolkata",
			MaxConns: 10,
		},
		Store:  StoreConfig{Driver: DriverMemory},
		Ledger: LedgerConfig{Driver: DriverMemory, HoldTTL: 10 * time.Minute, SweepInterval: time.Second},
		Redis:  RedisConfig{Addr: "localhost:16379", Prefix: "transit-test"},
		Payment: PaymentConfig{
			Timeout:                   2 * time.Second,
			Currency:                  "INR",
			WalletInitialBalanceCents: 250000,
			WalletMaxTopUpCents:       10000000,
			CardLatency:               0,
			CardLimitCents:            20000000,
			UPILatency:                0,
			UPILimitCents:             10000000,
			UPIPollInterval:           10 * time.Millisecond,
		},
		Catalog:     CatalogConfig{TimeZone: "Asia/Kolkata", TimeZoneOffset: 19800, SeedDays: 7},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour, PurgeInterval: time.Minute},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "Asia/Kolkata",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 19800,
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
	}
}
