package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgconfig "github.com/MitchellMonaghan/stripe-no-website-example/pkg/config"
	"github.com/MitchellMonaghan/stripe-no-website-example/pkg/logger"
)

// ServiceName is used for the config file name and the environment prefix (RELAY_).
const ServiceName = "relay"

// Config is built once at startup and never mutated after the server starts.
type Config struct {
	Service     ServiceConfig     `mapstructure:"service"`
	Server      ServerConfig      `mapstructure:"server"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Checkout    CheckoutConfig    `mapstructure:"checkout"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Dedup       DedupConfig       `mapstructure:"dedup"`
	DeadLetter  DeadLetterConfig  `mapstructure:"dead_letter"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Replay      ReplayConfig      `mapstructure:"replay"`
	Log         logger.Config     `mapstructure:"log"`
}

// envAliases keeps the environment variable names of the original deployment working.
var envAliases = map[string][]string{
	"server.http.port":            {"PORT"},
	"service.test_mode":           {"TEST_MODE"},
	"stripe.secret_key":           {"STRIPE_SECRET"},
	"stripe.publishable_key":      {"STRIPE_KEY"},
	"stripe.publishable_key_test": {"STRIPE_KEY_TEST"},
	"stripe.webhook_secret":       {"STRIPE_WEBHOOK_SECRET"},
	"entitlement.api_key":         {"RC_API_KEY"},
	"checkout.success_url":        {"SUCCESS_URL"},
	"checkout.cancel_url":         {"CANCEL_URL"},
	"cors.origins":                {"CORS_ORIGINS"},
	"redis.addr":                  {"REDIS_ADDR"},
	"secrets.id":                  {"SECRETS_ID"},
	"aws.region":                  {"AWS_REGION"},
	"aws.endpoint":                {"AWS_ENDPOINT"},
}

// Load reads configuration from the optional yaml file and the environment.
func Load() (*Config, error) {
	src, err := pkgconfig.Load(ServiceName, pkgconfig.Options{
		Defaults:   defaults(),
		EnvAliases: envAliases,
	})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := src.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORS.Origins = splitOrigins(cfg.CORS.Origins)

	return &cfg, nil
}

// PublishableKey selects the Stripe publishable key for the current mode.
func (c *Config) PublishableKey() string {
	if c.Service.TestMode {
		return c.Stripe.PublishableKeyTest
	}
	return c.Stripe.PublishableKey
}

// ApplySecrets overlays credentials fetched from a secret store. Unknown keys are ignored.
func (c *Config) ApplySecrets(values map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := values[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.Stripe.SecretKey, "stripe_secret_key")
	set(&c.Stripe.WebhookSecret, "stripe_webhook_secret")
	set(&c.Stripe.PublishableKey, "stripe_publishable_key")
	set(&c.Stripe.PublishableKeyTest, "stripe_publishable_key_test")
	set(&c.Entitlement.APIKey, "entitlement_api_key")
	set(&c.Admin.JWTSecret, "admin_jwt_secret")
	set(&c.Redis.Password, "redis_password")
}

// Validate checks field constraints and the settings each selected backend needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if (c.Dedup.Backend == "redis" || c.DeadLetter.Backend == "redis") && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: redis.addr is required for the redis backend")
	}
	if c.DeadLetter.Backend == "sns" && c.DeadLetter.SNSTopicARN == "" {
		return fmt.Errorf("invalid config: dead_letter.sns_topic_arn is required for the sns backend")
	}
	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		return fmt.Errorf("invalid config: retry.max_interval must not be below retry.initial_interval")
	}
	return nil
}

func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
