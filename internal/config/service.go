package config

import "time"

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	TestMode    bool   `mapstructure:"test_mode"`
}

type StripeConfig struct {
	SecretKey          string        `mapstructure:"secret_key" validate:"required"`
	PublishableKey     string        `mapstructure:"publishable_key"`
	PublishableKeyTest string        `mapstructure:"publishable_key_test"`
	WebhookSecret      string        `mapstructure:"webhook_secret"`
	WebhookTolerance   time.Duration `mapstructure:"webhook_tolerance"`
	// APIURL overrides the Stripe API base, for stripe-mock or tests.
	APIURL string `mapstructure:"api_url"`
}

type EntitlementConfig struct {
	BaseURL  string        `mapstructure:"base_url" validate:"required,url"`
	APIKey   string        `mapstructure:"api_key" validate:"required"`
	Platform string        `mapstructure:"platform"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0,max=10s"`
}

// RetryConfig bounds receipt delivery: MaxAttempts includes the first try.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"min=1,max=20"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gt=0"`
	Multiplier      float64       `mapstructure:"multiplier" validate:"gte=1"`
	Jitter          float64       `mapstructure:"jitter" validate:"gte=0,lte=1"`
}

type CheckoutConfig struct {
	SuccessURL string `mapstructure:"success_url"`
	CancelURL  string `mapstructure:"cancel_url"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type DedupConfig struct {
	Backend    string        `mapstructure:"backend" validate:"oneof=none memory redis"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
	MaxEntries int           `mapstructure:"max_entries" validate:"min=1"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

type DeadLetterConfig struct {
	Backend      string `mapstructure:"backend" validate:"oneof=log redis sns"`
	RedisChannel string `mapstructure:"redis_channel"`
	SNSTopicARN  string `mapstructure:"sns_topic_arn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MetricsConfig struct {
	CloudWatchEnabled bool   `mapstructure:"cloudwatch_enabled"`
	Namespace         string `mapstructure:"namespace"`
}

// SecretsConfig names an AWS Secrets Manager secret holding a JSON object of credentials.
type SecretsConfig struct {
	ID string `mapstructure:"id"`
}

// AdminConfig gates the cancellation endpoint. Empty JWTSecret and zero RateLimit disable the gates.
type AdminConfig struct {
	JWTSecret string  `mapstructure:"jwt_secret"`
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=0"`
}

// AWSConfig is shared by the SNS, CloudWatch and Secrets Manager clients.
// Endpoint targets LocalStack when set.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// ReplayConfig drives cmd/replay-dead-letters, which re-forwards dead letters published on
// dead_letter.redis_channel.
type ReplayConfig struct {
	// IncludeTerminal also replays receipts the entitlement service rejected.
	IncludeTerminal bool `mapstructure:"include_terminal"`
	// DryRun logs dead letters without forwarding them.
	DryRun bool `mapstructure:"dry_run"`
	// Limit stops after this many dead letters. Zero runs until interrupted.
	Limit int `mapstructure:"limit" validate:"gte=0"`
}
