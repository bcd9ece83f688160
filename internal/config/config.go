package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	EventsDriverNone    = "none"
	EventsDriverKafka   = "kafka"
	EventsDriverSQS     = "sqs"
	EventsDriverWebhook = "webhook"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	StoreDriver         string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	AuthMode            string        `mapstructure:"AUTH_MODE"`
	AuthJWTSecret       string        `mapstructure:"AUTH_JWT_SECRET"`
	AuthJWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	AuthServiceURL      string        `mapstructure:"AUTH_SERVICE_URL"`
	AuthServiceKey      string        `mapstructure:"AUTH_SERVICE_KEY"`
	AllowAdminSignup    bool          `mapstructure:"ALLOW_ADMIN_SIGNUP"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	IdempotencyTTL      time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	EventsDriver        string        `mapstructure:"EVENTS_DRIVER"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic     string        `mapstructure:"KAFKA_ORDER_TOPIC"`
	SQSQueueURL         string        `mapstructure:"SQS_QUEUE_URL"`
	WebhookURL          string        `mapstructure:"EVENTS_WEBHOOK_URL"`
	WebhookSecret       string        `mapstructure:"EVENTS_WEBHOOK_SECRET"`
	AWSRegion           string        `mapstructure:"AWS_REGION"`
	SummarizerURL       string        `mapstructure:"SUMMARIZER_SERVICE_URL"`
	SummarizerTimeout   time.Duration `mapstructure:"SUMMARIZER_TIMEOUT"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
	UploadBodyLimit     string        `mapstructure:"UPLOAD_BODY_LIMIT"`
	CompensationTimeout time.Duration `mapstructure:"COMPENSATION_TIMEOUT"`
	SeedDemoData        bool          `mapstructure:"SEED_DEMO_DATA"`
}

var envKeys = []string{
	"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_MODE", "AUTH_JWT_SECRET", "AUTH_JWKS_URL", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"AUTH_SERVICE_URL", "AUTH_SERVICE_KEY", "ALLOW_ADMIN_SIGNUP",
	"REDIS_URL", "IDEMPOTENCY_TTL",
	"EVENTS_DRIVER", "KAFKA_BROKERS", "KAFKA_ORDER_TOPIC", "SQS_QUEUE_URL", "AWS_REGION",
	"EVENTS_WEBHOOK_URL", "EVENTS_WEBHOOK_SECRET",
	"SUMMARIZER_SERVICE_URL", "SUMMARIZER_TIMEOUT",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT", "UPLOAD_BODY_LIMIT",
	"COMPENSATION_TIMEOUT", "SEED_DEMO_DATA",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AUTH_MODE", "") // "" -> dev in development, jwt otherwise
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("EVENTS_DRIVER", EventsDriverNone)
	v.SetDefault("KAFKA_ORDER_TOPIC", "orders.placed")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SUMMARIZER_SERVICE_URL", "http://localhost:5000")
	v.SetDefault("SUMMARIZER_TIMEOUT", "30s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("UPLOAD_BODY_LIMIT", "10M")
	v.SetDefault("COMPENSATION_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ResolvedAuthMode() == AuthModeDev {
		log.Println("WARNING: AUTH_MODE=dev, every request runs as the development admin principal.")
	}

	return cfg, nil
}

// splitList trims comma separated env values.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise dev in development
// and jwt everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDev
	}
	return AuthModeJWT
}

// IdempotencyEnabled reports whether a Redis backend was configured.
func (c *Config) IdempotencyEnabled() bool {
	return c.RedisURL != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeJWT:
		if c.AuthJWTSecret == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_JWT_SECRET or AUTH_JWKS_URL must be set when AUTH_MODE is %q", AuthModeJWT)
		}
	case AuthModeDev:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE %q is not allowed in production", AuthModeDev)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWT, AuthModeDev, mode)
	}

	switch c.EventsDriver {
	case EventsDriverNone, "":
	case EventsDriverKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_DRIVER is %q", EventsDriverKafka)
		}
	case EventsDriverSQS:
		if c.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when EVENTS_DRIVER is %q", EventsDriverSQS)
		}
	case EventsDriverWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("EVENTS_WEBHOOK_URL is required when EVENTS_DRIVER is %q", EventsDriverWebhook)
		}
	default:
		return fmt.Errorf("EVENTS_DRIVER must be none, kafka, sqs or webhook, got %q", c.EventsDriver)
	}

	if c.CompensationTimeout <= 0 {
		return fmt.Errorf("COMPENSATION_TIMEOUT must be positive")
	}
	return nil
}
