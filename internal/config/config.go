package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/delali3/era-store-sub002/internal/domain"
	pkgconfig "github.com/delali3/era-store-sub002/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB   string `env:"STOREFRONT_DB_NAME" envDefault:"storefront_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CartTTLHours  int    `env:"CART_TTL_HOURS" envDefault:"720"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Downstream services
	InventoryServiceURL string `env:"INVENTORY_SERVICE_URL" envDefault:"http://localhost:8007"`
	PaymentProviderURL  string `env:"PAYMENT_PROVIDER_URL" envDefault:"http://localhost:8005"`

	// Payment mode selects the gateway implementation: "hosted" drives the
	// provider's session API with webhooks, "sandbox" resolves in process.
	PaymentMode    string `env:"PAYMENT_MODE" envDefault:"hosted"`
	SandboxOutcome string `env:"PAYMENT_SANDBOX_OUTCOME" envDefault:"success"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// Pricing policy. Money values are minor currency units, tax is in
	// basis points.
	Currency              string `env:"STOREFRONT_CURRENCY" envDefault:"USD"`
	TaxRateBps            int64  `env:"TAX_RATE_BPS" envDefault:"800"`
	FreeShippingThreshold int64  `env:"FREE_SHIPPING_THRESHOLD" envDefault:"5000"`

	// ShippingMethods is a catalog spec of id:name:price:days entries.
	ShippingMethods []string `env:"SHIPPING_METHODS" envDefault:"standard:Standard Shipping:599:5-7,express:Express Shipping:1499:1-2" envSeparator:","`

	// PromoCodes maps code:percent entries.
	PromoCodes []string `env:"PROMO_CODES" envDefault:"SAVE10:10" envSeparator:","`

	// Circuit breaker settings for downstream HTTP calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

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
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.PaymentMode != "hosted" && c.PaymentMode != "sandbox" {
		return fmt.Errorf("PAYMENT_MODE must be hosted or sandbox, got %q", c.PaymentMode)
	}
	if c.TaxRateBps < 0 || c.TaxRateBps > 10_000 {
		return fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000, got %d", c.TaxRateBps)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	for name, rawURL := range map[string]string{
		"INVENTORY_SERVICE_URL": c.InventoryServiceURL,
		"PAYMENT_PROVIDER_URL":  c.PaymentProviderURL,
	} {
		if rawURL == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	if _, err := c.ShippingCatalog(); err != nil {
		return err
	}
	if _, err := c.PromoTable(); err != nil {
		return err
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// RedisAddr returns the Redis address in host:port form.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ShippingCatalog parses the configured shipping method specs.
func (c *Config) ShippingCatalog() ([]domain.ShippingMethod, error) {
	methods := make([]domain.ShippingMethod, 0, len(c.ShippingMethods))
	for _, spec := range c.ShippingMethods {
		parts := strings.Split(spec, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid shipping method spec %q, want id:name:price:days", spec)
		}
		price, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("invalid shipping price in %q", spec)
		}
		methods = append(methods, domain.ShippingMethod{
			ID:    parts[0],
			Name:  parts[1],
			Price: price,
			Days:  parts[3],
		})
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("SHIPPING_METHODS is required")
	}
	return methods, nil
}

// PromoTable parses the configured promo code specs into a code-to-percent
// map. Codes are stored uppercase.
func (c *Config) PromoTable() (map[string]int, error) {
	promos := make(map[string]int, len(c.PromoCodes))
	for _, spec := range c.PromoCodes {
		if spec == "" {
			continue
		}
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid promo code spec %q, want code:percent", spec)
		}
		percent, err := strconv.Atoi(parts[1])
		if err != nil || percent < 1 || percent > 100 {
			return nil, fmt.Errorf("invalid promo percent in %q", spec)
		}
		promos[strings.ToUpper(parts[0])] = percent
	}
	return promos, nil
}
