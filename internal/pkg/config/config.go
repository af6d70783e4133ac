package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/env"
)

// RateLimitRule is a fixed-window budget for a single endpoint.
type RateLimitRule struct {
	MaxCount int
	Window   time.Duration
}

// Config holds every setting the service needs, resolved once at process
// start and injected from there. Runtime env lookups are not allowed outside
// this package.
type Config struct {
	AppHost string
	AppPort string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	CacheHost string
	CachePort string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPSender   string

	StripeAPIKey        string
	StripeWebhookSecret string

	IntegrityInterval time.Duration

	// RateLimits is keyed by endpoint name as used by the rate limiter.
	RateLimits map[string]RateLimitRule
}

// Load resolves the configuration from the environment. It returns an error
// for settings the service cannot run without.
func Load() (*Config, error) {
	env.SetupEnvFile()

	cfg := &Config{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "4000"),

		DBUser:     env.GetEnv("DB_USER", "assistapp"),
		DBPassword: env.GetEnv("DB_PASSWORD", ""),
		DBHost:     env.GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:     env.GetEnv("DB_PORT", "3306"),
		DBName:     env.GetEnv("DB_NAME", "assistapp_db"),

		CacheHost: env.GetEnv("CACHE_HOST", "localhost"),
		CachePort: env.GetEnv("CACHE_PORT", "6379"),

		SMTPHost:     env.GetEnv("SMTP_HOST", ""),
		SMTPPort:     env.GetEnv("SMTP_PORT", "587"),
		SMTPUsername: env.GetEnv("SMTP_USERNAME", ""),
		SMTPPassword: env.GetEnv("SMTP_PASSWORD", ""),
		SMTPSender:   env.GetEnv("SMTP_SENDER", ""),

		StripeAPIKey:        strings.TrimSpace(env.GetEnv("STRIPE_API_KEY", "")),
		StripeWebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),

		IntegrityInterval: durationEnv("INTEGRITY_CHECK_INTERVAL_HOURS", 6) * time.Hour,

		RateLimits: map[string]RateLimitRule{
			"getSubscriptionStatus":    {MaxCount: intEnv("RATE_LIMIT_STATUS_MAX", 10), Window: 60 * time.Second},
			"updateSubscriptionStatus": {MaxCount: intEnv("RATE_LIMIT_UPDATE_MAX", 5), Window: 60 * time.Second},
			"requestVerificationCode":  {MaxCount: intEnv("RATE_LIMIT_VERIFY_MAX", 5), Window: 15 * time.Minute},
		},
	}

	if cfg.StripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is not configured")
	}
	return cfg, nil
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(env.GetEnv(key, ""))); err == nil && v > 0 {
		return v
	}
	return def
}

func durationEnv(key string, def int) time.Duration {
	return time.Duration(intEnv(key, def))
}
