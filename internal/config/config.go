package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Storage drivers for visitor blobs.
const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all configuration for the storefront BFF.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"STOREFRONT_VERSION" envDefault:"0.1.0"`

	// HTTP server
	HTTPPort       int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	SecureCookies  bool          `env:"VISITOR_COOKIE_SECURE" envDefault:"false"`

	// REST backend
	BackendURL        string        `env:"BACKEND_URL" envDefault:"http://localhost:8000/api/v1"`
	BackendTimeout    time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	BackendMaxRetries int           `env:"BACKEND_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker around the backend
	CBMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Visitor storage
	StorageDriver string        `env:"STORAGE_DRIVER" envDefault:"redis"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass     string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	VisitorTTL    time.Duration `env:"VISITOR_STORAGE_TTL" envDefault:"168h"`

	// Slow Redis command logging; zero disables it.
	SlowCommandThreshold time.Duration `env:"LOG_SLOW_REDIS_COMMAND" envDefault:"100ms"`

	// In-memory visitor sessions
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

	// Kafka. Events are dropped when no brokers are configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Checkout
	AddressRefetchDelay   time.Duration    `env:"ADDRESS_REFETCH_DELAY" envDefault:"500ms"`
	OriginPostalCode      string           `env:"SHIPPING_ORIGIN_POSTAL_CODE" envDefault:"400001"`
	TaxBasisPoints        int64            `env:"TAX_BASIS_POINTS" envDefault:"800"`
	FreeShippingThreshold int64            `env:"FREE_SHIPPING_THRESHOLD" envDefault:"0"`
	PromoCodes            map[string]int64 `env:"PROMO_CODES" envDefault:"WELCOME10:10" envSeparator:"," envKeyValSeparator:":"`

	// Payments
	PaymentSessionTTL    time.Duration `env:"PAYMENT_SESSION_TTL" envDefault:"5m"`
	PaymentMaxRetries    int           `env:"PAYMENT_MAX_RETRIES" envDefault:"3"`
	FailureReportTimeout time.Duration `env:"PAYMENT_FAILURE_REPORT_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize upper-cases promo codes so lookups match what shoppers type.
func (c *Config) normalize() {
	promos := make(map[string]int64, len(c.PromoCodes))
	for code, pct := range c.PromoCodes {
		promos[strings.ToUpper(strings.TrimSpace(code))] = pct
	}
	c.PromoCodes = promos
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if u, err := url.ParseRequestURI(c.BackendURL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL %q", c.BackendURL)
	}
	switch c.StorageDriver {
	case StorageRedis:
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageRedis, StorageMemory, c.StorageDriver)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.SessionIdleTTL <= 0 || c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.PaymentSessionTTL <= 0 {
		return fmt.Errorf("PAYMENT_SESSION_TTL must be positive")
	}
	if c.PaymentMaxRetries < 0 {
		return fmt.Errorf("PAYMENT_MAX_RETRIES must not be negative, got %d", c.PaymentMaxRetries)
	}
	if c.TaxBasisPoints < 0 || c.TaxBasisPoints > 10000 {
		return fmt.Errorf("TAX_BASIS_POINTS must be between 0 and 10000, got %d", c.TaxBasisPoints)
	}
	for code, pct := range c.PromoCodes {
		if code == "" || pct <= 0 || pct > 100 {
			return fmt.Errorf("invalid promo code %q: discount must be between 1 and 100 percent", code)
		}
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
