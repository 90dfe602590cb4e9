package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Server      Server
	Postgres    PostgresConfig
	Redis       RedisConfig
	Registrar   RegistrarConfig
	Reservation ReservationConfig
	Cart        CartConfig
	Kafka       KafkaConfig
	Identity    IdentityConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"DOMAINVAULT_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"DOMAINVAULT_LOG_LEVEL" envDefault:"info"`
	RequestTimeout  time.Duration `env:"DOMAINVAULT_REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"DOMAINVAULT_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AuditBuffer     int           `env:"DOMAINVAULT_AUDIT_BUFFER" envDefault:"256"`
	// CuratedSeedFile points at a JSON inventory file loaded at startup (dev/test only).
	CuratedSeedFile string `env:"DOMAINVAULT_CURATED_SEED_FILE"`
}

// PostgresConfig selects the durable stores. An empty URL keeps everything in memory.
type PostgresConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	RunMigrations   bool          `env:"DATABASE_RUN_MIGRATIONS" envDefault:"true"`
}

// RedisConfig configures the lookup cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// RegistrarConfig holds reseller credentials and call limits.
// TestMode only switches the base endpoint.
type RegistrarConfig struct {
	UID            string        `env:"DOMAINVAULT_REGISTRAR_UID"`
	Password       string        `env:"DOMAINVAULT_REGISTRAR_PASSWORD"`
	TestMode       bool          `env:"DOMAINVAULT_REGISTRAR_TEST_MODE" envDefault:"true"`
	LiveURL        string        `env:"DOMAINVAULT_REGISTRAR_LIVE_URL" envDefault:"https://reseller.enom.com/interface.asp"`
	TestURL        string        `env:"DOMAINVAULT_REGISTRAR_TEST_URL" envDefault:"https://resellertest.enom.com/interface.asp"`
	Timeout        time.Duration `env:"DOMAINVAULT_REGISTRAR_TIMEOUT" envDefault:"30s"`
	MaxConcurrency int           `env:"DOMAINVAULT_REGISTRAR_MAX_CONCURRENCY" envDefault:"5"`
	CacheTTL       time.Duration `env:"DOMAINVAULT_REGISTRAR_CACHE_TTL" envDefault:"60s"`
	// DefaultTLDs are used by search when the caller names none.
	DefaultTLDs []string `env:"DOMAINVAULT_REGISTRAR_DEFAULT_TLDS" envDefault:"com,net,io,co" envSeparator:","`
	// BreakerFailures opens the registrar circuit after this many consecutive transport failures.
	BreakerFailures int           `env:"DOMAINVAULT_REGISTRAR_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"DOMAINVAULT_REGISTRAR_BREAKER_COOLDOWN" envDefault:"30s"`
}

// BaseURL returns the endpoint selected by TestMode.
func (c RegistrarConfig) BaseURL() string {
	if c.TestMode {
		return c.TestURL
	}
	return c.LiveURL
}

type ReservationConfig struct {
	DefaultTTL    time.Duration `env:"DOMAINVAULT_RESERVATION_TTL" envDefault:"10m"`
	MaxTTL        time.Duration `env:"DOMAINVAULT_RESERVATION_MAX_TTL" envDefault:"1h"`
	SweepInterval time.Duration `env:"DOMAINVAULT_RESERVATION_SWEEP_INTERVAL" envDefault:"1m"`
}

type CartConfig struct {
	// ItemTTL is how long a pricing snapshot stays in the cart before it expires.
	ItemTTL time.Duration `env:"DOMAINVAULT_CART_ITEM_TTL" envDefault:"720h"`
}

// KafkaConfig configures the reconciliation queue. No brokers keeps the queue in memory.
type KafkaConfig struct {
	Brokers             []string `env:"KAFKA_BROKERS" envSeparator:","`
	ReconciliationTopic string   `env:"KAFKA_RECONCILIATION_TOPIC" envDefault:"domainvault.reconciliation"`
	Partitions          int32    `env:"KAFKA_RECONCILIATION_PARTITIONS" envDefault:"3"`
	ReplicationFactor   int16    `env:"KAFKA_RECONCILIATION_REPLICATION" envDefault:"1"`
}

// IdentityConfig selects how (userId, role) is read from requests.
// With a signing key, a session-layer JWT is required; otherwise trusted headers are used.
type IdentityConfig struct {
	JWTSigningKey string `env:"DOMAINVAULT_IDENTITY_JWT_KEY"`
	JWTIssuer     string `env:"DOMAINVAULT_IDENTITY_JWT_ISSUER"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Reservation.DefaultTTL <= 0 {
		return fmt.Errorf("reservation default ttl must be positive")
	}
	if c.Reservation.MaxTTL < c.Reservation.DefaultTTL {
		return fmt.Errorf("reservation max ttl %s is below default ttl %s", c.Reservation.MaxTTL, c.Reservation.DefaultTTL)
	}
	if c.Registrar.MaxConcurrency < 1 {
		return fmt.Errorf("registrar max concurrency must be at least 1")
	}
	if c.Registrar.Timeout <= 0 {
		return fmt.Errorf("registrar timeout must be positive")
	}
	if c.Registrar.BaseURL() == "" {
		return fmt.Errorf("registrar base url is required")
	}
	return nil
}
