// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/service"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the command channel (gRPC) listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr serves the WebSocket broadcast channel and /healthz, /readyz.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty selects the in-memory store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL enables the cross-instance broadcast backplane when set.
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWTPublicKey is the PEM-encoded public key or path to file used to verify access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey is only needed by cmd/devtoken.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the lifetime of development tokens (e.g. "12h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// ConflictPolicy is "reject" or "supersede".
	ConflictPolicy string `mapstructure:"SESSION_CONFLICT_POLICY"`
	// EstimationScale is a comma-separated list of vote values; empty uses the default deck.
	EstimationScale string `mapstructure:"ESTIMATION_SCALE"`
	// CommandDedupeTTL is how long a command id's result is remembered (e.g. "2m").
	CommandDedupeTTL string `mapstructure:"COMMAND_DEDUPE_TTL"`
	// SubscriberBuffer is the per-connection outbound queue length.
	SubscriberBuffer int `mapstructure:"SUBSCRIBER_BUFFER"`
	// CORSAllowedOrigins is a comma-separated origin list for the HTTP side; "*" allows any.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// PolicyFile is an optional Rego file replacing the built-in authorization policy.
	PolicyFile string `mapstructure:"POLICY_FILE"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, command telemetry is written to Kafka.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	TelemetryKafkaTopic   string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// Worker-only: Loki URL and consumer group for cmd/worker.
	LokiURL      string `mapstructure:"LOKI_URL"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

var defaults = map[string]any{
	"GRPC_ADDR":                   ":8080",
	"HTTP_ADDR":                   ":8081",
	"DATABASE_URL":                "",
	"REDIS_URL":                   "",
	"JWT_PUBLIC_KEY":              "",
	"JWT_PRIVATE_KEY":             "",
	"JWT_ISSUER":                  "scrumtools-auth",
	"JWT_AUDIENCE":                "scrumtools-api",
	"JWT_ACCESS_TTL":              "12h",
	"SESSION_CONFLICT_POLICY":     string(service.ConflictReject),
	"ESTIMATION_SCALE":            "",
	"COMMAND_DEDUPE_TTL":          "2m",
	"SUBSCRIBER_BUFFER":           64,
	"CORS_ALLOWED_ORIGINS":        "",
	"POLICY_FILE":                 "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_INSECURE": false,
	"KAFKA_BROKERS":               "",
	"TELEMETRY_KAFKA_TOPIC":       "poker-telemetry",
	"LOKI_URL":                    "",
	"KAFKA_GROUP_ID":              "poker-telemetry-worker",
	"APP_ENV":                     "",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if _, err := service.ParseConflictPolicy(c.ConflictPolicy); err != nil {
		return fmt.Errorf("config: SESSION_CONFLICT_POLICY: %w", err)
	}
	if _, err := domain.ParseScale(c.EstimationScale); err != nil {
		return fmt.Errorf("config: ESTIMATION_SCALE: %w", err)
	}
	if c.SubscriberBuffer <= 0 {
		return errors.New("config: SUBSCRIBER_BUFFER must be positive")
	}
	if c.Env == "production" && strings.TrimSpace(c.JWTPublicKey) == "" {
		return errors.New("config: JWT_PUBLIC_KEY must be set when APP_ENV=production")
	}
	return nil
}

// Policy returns the parsed session conflict policy. Load has already validated it.
func (c *Config) Policy() service.ConflictPolicy {
	p, err := service.ParseConflictPolicy(c.ConflictPolicy)
	if err != nil {
		return service.ConflictReject
	}
	return p
}

// Scale returns the parsed estimation scale, falling back to the default deck.
func (c *Config) Scale() domain.Scale {
	s, err := domain.ParseScale(c.EstimationScale)
	if err != nil {
		return domain.DefaultScale()
	}
	return s
}

// AccessTTL parses JWTAccessTTL. Returns 12h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parsePositiveDuration(c.JWTAccessTTL, 12*time.Hour)
}

// DedupeTTL parses CommandDedupeTTL. Returns 2m if unset or invalid.
func (c *Config) DedupeTTL() time.Duration {
	return parsePositiveDuration(c.CommandDedupeTTL, 2*time.Minute)
}

func parsePositiveDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

// CORSOrigins returns the allowed origins for the HTTP side.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
