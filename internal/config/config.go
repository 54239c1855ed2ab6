package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CasdoorConfig holds the identity provider settings.
type CasdoorConfig struct {
	Endpoint     string `mapstructure:"CASDOOR_ENDPOINT"`
	ClientID     string `mapstructure:"CASDOOR_CLIENT_ID"`
	ClientSecret string `mapstructure:"CASDOOR_CLIENT_SECRET"`
	Cert         string `mapstructure:"CASDOOR_CERT"`
	Organization string `mapstructure:"CASDOOR_ORGANIZATION"`
	Application  string `mapstructure:"CASDOOR_APPLICATION"`
}

// Config is the full service configuration, loaded from the environment with
// an optional .env file for local development.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    slog.Level

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	KafkaBrokers []string
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	ReapSchedule string        `mapstructure:"REAP_SCHEDULE"`
	ReapGrace    time.Duration `mapstructure:"REAP_GRACE"`

	Casdoor CasdoorConfig `mapstructure:",squash"`
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is merged in when present.
func LoadConfig() (*Config, error) {
	// Ignore the error: a missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("KAFKA_TOPIC", "assessment.events")
	v.SetDefault("REAP_SCHEDULE", "@every 1m")
	v.SetDefault("REAP_GRACE", "5m")

	// AutomaticEnv alone does not surface keys to Unmarshal; bind explicitly.
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL",
		"DATABASE_URL", "REDIS_URL",
		"KAFKA_BROKERS", "KAFKA_TOPIC",
		"REAP_SCHEDULE", "REAP_GRACE",
		"CASDOOR_ENDPOINT", "CASDOOR_CLIENT_ID", "CASDOOR_CLIENT_SECRET",
		"CASDOOR_CERT", "CASDOOR_ORGANIZATION", "CASDOOR_APPLICATION",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LogLevel = parseLogLevel(v.GetString("LOG_LEVEL"))
	cfg.KafkaBrokers = splitBrokers(v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
