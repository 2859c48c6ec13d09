package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RATE_WINDOW", "soon")
	t.Setenv("PORT", "5000")
	t.Setenv("TRUST_PROXY", "")

	cfg := Load()

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Redis.RateWindow, "unparsable duration falls back")
	assert.False(t, cfg.Server.TrustProxy)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("EMAIL_DEV_MODE", "false")
	t.Setenv("RATE_WINDOW", "30s")
	t.Setenv("TRUST_PROXY", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.False(t, cfg.Email.DevMode)
	assert.Equal(t, 30*time.Second, cfg.Redis.RateWindow)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"development defaults", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.Auth.AccessTokenSecret = "" }, true},
		{"production with dev secret", func(c *Config) { c.Env = "production" }, true},
		{"production configured", func(c *Config) {
			c.Env = "production"
			c.Auth.AccessTokenSecret = "s3cr3t"
			c.Stripe.SecretKey = "sk_live_x"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Env:  "development",
				Auth: AuthConfig{AccessTokenSecret: devSecret},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
