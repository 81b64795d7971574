package config

import "time"

// defaults registers every key so viper can unmarshal env-only settings.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":        "stripe-revenuecat-relay",
		"service.environment": "development",
		"service.test_mode":   false,

		"server.http.host":             "",
		"server.http.port":             3000,
		"server.http.shutdown_timeout": 30 * time.Second,

		"stripe.secret_key":           "",
		"stripe.publishable_key":      "",
		"stripe.publishable_key_test": "",
		"stripe.webhook_secret":       "",
		"stripe.webhook_tolerance":    5 * time.Minute,
		"stripe.api_url":              "",

		"entitlement.base_url": "https://api.revenuecat.com/v1",
		"entitlement.api_key":  "",
		"entitlement.platform": "stripe",
		"entitlement.timeout":  10 * time.Second,

		"retry.max_attempts":     5,
		"retry.initial_interval": 500 * time.Millisecond,
		"retry.max_interval":     30 * time.Second,
		"retry.multiplier":       2.0,
		"retry.jitter":           0.2,

		"checkout.success_url": "",
		"checkout.cancel_url":  "",

		"cors.origins": []string{},

		"dedup.backend":     "none",
		"dedup.ttl":         24 * time.Hour,
		"dedup.max_entries": 10000,
		"dedup.key_prefix":  "relay:webhook:",

		"dead_letter.backend":       "log",
		"dead_letter.redis_channel": "relay.receipts.dead_letter",
		"dead_letter.sns_topic_arn": "",

		"redis.addr":     "",
		"redis.password": "",
		"redis.db":       0,

		"metrics.cloudwatch_enabled": false,
		"metrics.namespace":          "ReceiptRelay",

		"secrets.id": "",

		"aws.region":   "",
		"aws.endpoint": "",

		"admin.jwt_secret": "",
		"admin.rate_limit": 0.0,
		"admin.burst":      0,

		"replay.include_terminal": false,
		"replay.dry_run":          false,
		"replay.limit":            0,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.file_path":   "",
		"log.development": false,
	}
}
