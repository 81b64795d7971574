package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("STRIPE_SECRET", "sk_test_1")
	t.Setenv("RC_API_KEY", "rc_key_1")
}

func TestLoad_DefaultsAndLegacyEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("TEST_MODE", "true")
	t.Setenv("STRIPE_KEY", "pk_live_1")
	t.Setenv("STRIPE_KEY_TEST", "pk_test_1")
	t.Setenv("SUCCESS_URL", "https://example.com/success")
	t.Setenv("CANCEL_URL", "https://example.com/cancel")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.True(t, cfg.Service.TestMode)
	assert.Equal(t, "sk_test_1", cfg.Stripe.SecretKey)
	assert.Equal(t, "rc_key_1", cfg.Entitlement.APIKey)
	assert.Equal(t, "https://api.revenuecat.com/v1", cfg.Entitlement.BaseURL)
	assert.Equal(t, "stripe", cfg.Entitlement.Platform)
	assert.Equal(t, 10*time.Second, cfg.Entitlement.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "https://example.com/success", cfg.Checkout.SuccessURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.Origins)
	assert.Equal(t, "none", cfg.Dedup.Backend)
	assert.Equal(t, "log", cfg.DeadLetter.Backend)

	assert.Equal(t, "pk_test_1", cfg.PublishableKey())
	cfg.Service.TestMode = false
	assert.Equal(t, "pk_live_1", cfg.PublishableKey())
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("RELAY_SERVER_HTTP_PORT", "9000")
	t.Setenv("RELAY_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("RELAY_RETRY_INITIAL_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTP.Port)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialInterval)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", dir)

	yaml := []byte("retry:\n  max_attempts: 7\n  max_interval: 1m\ndead_letter:\n  backend: redis\nredis:\n  addr: localhost:6379\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServiceName+".yaml"), yaml, 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Retry.MaxInterval)
	assert.Equal(t, "redis", cfg.DeadLetter.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing stripe secret", func(c *Config) { c.Stripe.SecretKey = "" }},
		{"missing entitlement key", func(c *Config) { c.Entitlement.APIKey = "" }},
		{"timeout above ten seconds", func(c *Config) { c.Entitlement.Timeout = 30 * time.Second }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"unknown dedup backend", func(c *Config) { c.Dedup.Backend = "memcached" }},
		{"redis dedup without addr", func(c *Config) { c.Dedup.Backend = "redis" }},
		{"sns without topic", func(c *Config) { c.DeadLetter.Backend = "sns" }},
		{"negative replay limit", func(c *Config) { c.Replay.Limit = -1 }},
		{"max interval below initial", func(c *Config) { c.Retry.MaxInterval = time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg, err := Load()
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Stripe.SecretKey = "from-env"
	cfg.Admin.JWTSecret = "keep-me"

	cfg.ApplySecrets(map[string]string{
		"stripe_secret_key":     "sk_live_secret",
		"stripe_webhook_secret": "whsec_1",
		"entitlement_api_key":   "rc_secret",
		"admin_jwt_secret":      "",
		"unrelated":             "ignored",
	})

	assert.Equal(t, "sk_live_secret", cfg.Stripe.SecretKey)
	assert.Equal(t, "whsec_1", cfg.Stripe.WebhookSecret)
	assert.Equal(t, "rc_secret", cfg.Entitlement.APIKey)
	assert.Equal(t, "keep-me", cfg.Admin.JWTSecret)
}
