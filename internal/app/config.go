package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     StorageConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Pricing     PricingConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `default:"postgres" usage:"Storage driver: postgres or memory"`
}

// RedisConfig locates the applied-coupon hint cache. Empty keeps hints in
// process memory.
type RedisConfig struct {
	URL string `env:"URL" usage:"Redis URL for coupon hints (CART_REDIS_URL or REDIS_URL)" flag:"redis-url"`
}

// AuthConfig controls actor identification.
type AuthConfig struct {
	JWTSecret     string `env:"JWT_SECRET" usage:"HS256 secret for customer bearer tokens" flag:"jwt-secret"`
	SecureCookies bool   `default:"true" usage:"Set Secure on the guest session cookie" flag:"secure-cookies"`
}

// PricingConfig holds checkout pricing knobs.
type PricingConfig struct {
	DefaultCurrency string        `default:"NGN" usage:"Currency of carts created without one"`
	ValidateTimeout time.Duration `default:"2s" usage:"Upper bound on a coupon validation"`
	CommitTimeout   time.Duration `default:"5s" usage:"Upper bound on a ledger commit"`
	HintTTL         time.Duration `env:"HINT_TTL" default:"72h" usage:"Lifetime of an applied-coupon hint"`
	// FreeShippingThreshold is a decimal amount; 0 disables it.
	FreeShippingThreshold string `default:"50000" usage:"Subtotal that qualifies for free shipping"`
}

// RateLimitConfig controls the per-actor sliding window on coupon validation.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Max coupon validations per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads .env when present, then configuration from environment
// variables, flags and YAML config files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/cart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	acfg.EnvPrefix = "CART"
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set CART_DATABASE_URL or DATABASE_URL")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	threshold, err := c.Pricing.Threshold()
	if err != nil {
		return err
	}
	if threshold.IsNegative() {
		return errors.New("free shipping threshold must not be negative")
	}
	if c.Pricing.ValidateTimeout <= 0 || c.Pricing.CommitTimeout <= 0 {
		return errors.New("pricing timeouts must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// Threshold parses FreeShippingThreshold.
func (p PricingConfig) Threshold() (decimal.Decimal, error) {
	if p.FreeShippingThreshold == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(p.FreeShippingThreshold)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse free shipping threshold %q", p.FreeShippingThreshold)
	}
	return d, nil
}
