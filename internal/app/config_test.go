package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoader = aconfig.Config{SkipFlags: true, SkipFiles: true}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CART_STORAGE_DRIVER", DriverMemory)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoader)
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "NGN", cfg.Pricing.DefaultCurrency)
	assert.Equal(t, 2*time.Second, cfg.Pricing.ValidateTimeout)
	assert.Equal(t, 5*time.Second, cfg.Pricing.CommitTimeout)
	assert.True(t, cfg.Auth.SecureCookies)
	assert.Equal(t, 30, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)

	threshold, err := cfg.Pricing.Threshold()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50000).Equal(threshold))
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://cart@db/cart")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoader)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://cart@db/cart", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_PrefixedWins(t *testing.T) {
	t.Setenv("CART_DATABASE_URL", "postgres://primary/cart")
	t.Setenv("DATABASE_URL", "postgres://platform/cart")

	cfg, err := loadConfig(testLoader)
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/cart", cfg.DatabaseURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "postgres without url",
			env:  map[string]string{"DATABASE_URL": ""},
			want: "database URL is required",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"CART_STORAGE_DRIVER": "sqlite"},
			want: `unknown storage driver "sqlite"`,
		},
		{
			name: "bad threshold",
			env: map[string]string{
				"CART_STORAGE_DRIVER":                  DriverMemory,
				"CART_PRICING_FREE_SHIPPING_THRESHOLD": "lots",
			},
			want: "parse free shipping threshold",
		},
		{
			name: "negative threshold",
			env: map[string]string{
				"CART_STORAGE_DRIVER":                  DriverMemory,
				"CART_PRICING_FREE_SHIPPING_THRESHOLD": "-1",
			},
			want: "must not be negative",
		},
		{
			name: "zero rate limit",
			env: map[string]string{
				"CART_STORAGE_DRIVER": DriverMemory,
				"CART_RATE_LIMIT_MAX": "0",
			},
			want: "rate limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(testLoader)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
