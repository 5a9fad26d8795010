package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/example/training-erp/internal/provisioning"
)

// Config captures environment driven configuration values for the training ERP service.
type Config struct {
	HTTPPort        int           `env:"TRAINING_ERP_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"TRAINING_ERP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	SQLitePath     string        `env:"TRAINING_ERP_SQLITE_PATH" envDefault:"training-erp.db"`
	DBBusyTimeout  time.Duration `env:"TRAINING_ERP_DB_BUSY_TIMEOUT" envDefault:"5s"`
	DBMaxOpenConns int           `env:"TRAINING_ERP_DB_MAX_OPEN_CONNS" envDefault:"8"`

	LogLevel  string `env:"TRAINING_ERP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TRAINING_ERP_LOG_FORMAT" envDefault:"json"`

	DisplayTimezone   string   `env:"TRAINING_ERP_DISPLAY_TIMEZONE" envDefault:"Europe/Madrid"`
	PlannablePrefixes []string `env:"TRAINING_ERP_PLANNABLE_PREFIXES" envDefault:"FOR-,CUR-" envSeparator:","`
	ExcludedPrefixes  []string `env:"TRAINING_ERP_EXCLUDED_PREFIXES" envDefault:"FOR-MAT-" envSeparator:","`

	KafkaBrokers []string `env:"TRAINING_ERP_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"TRAINING_ERP_KAFKA_TOPIC" envDefault:"training-erp.sessions"`

	OTelEnabled     bool   `env:"TRAINING_ERP_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string `env:"TRAINING_ERP_OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `env:"TRAINING_ERP_OTEL_SERVICE_NAME" envDefault:"training-erp"`

	// Location is resolved from DisplayTimezone by Load.
	Location *time.Location `env:"-"`
}

// Load reads optional dotenv files, then parses the process environment.
// Variables already set in the environment win over dotenv values. With no
// files given, a ".env" in the working directory is used when present.
func Load(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	invalid := make([]string, 0, 4)

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "TRAINING_ERP_HTTP_PORT")
	}
	if c.ShutdownTimeout <= 0 {
		invalid = append(invalid, "TRAINING_ERP_SHUTDOWN_TIMEOUT")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		invalid = append(invalid, "TRAINING_ERP_SQLITE_PATH")
	}
	if c.DBBusyTimeout < 0 {
		invalid = append(invalid, "TRAINING_ERP_DB_BUSY_TIMEOUT")
	}
	if c.DBMaxOpenConns <= 0 {
		invalid = append(invalid, "TRAINING_ERP_DB_MAX_OPEN_CONNS")
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "TRAINING_ERP_LOG_LEVEL")
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" && c.LogFormat != "text" {
		invalid = append(invalid, "TRAINING_ERP_LOG_FORMAT")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.DisplayTimezone))
	if err != nil {
		invalid = append(invalid, "TRAINING_ERP_DISPLAY_TIMEZONE")
	}
	c.Location = loc

	c.PlannablePrefixes = trimAll(c.PlannablePrefixes)
	if len(c.PlannablePrefixes) == 0 {
		invalid = append(invalid, "TRAINING_ERP_PLANNABLE_PREFIXES")
	}
	c.ExcludedPrefixes = trimAll(c.ExcludedPrefixes)
	c.KafkaBrokers = trimAll(c.KafkaBrokers)

	if c.OTelEnabled && strings.TrimSpace(c.OTelEndpoint) == "" {
		invalid = append(invalid, "TRAINING_ERP_OTEL_EXPORTER_OTLP_ENDPOINT")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Rules returns the plannable product rules configured for the deployment.
func (c Config) Rules() provisioning.Rules {
	return provisioning.Rules{
		PlannablePrefixes: c.PlannablePrefixes,
		ExcludedPrefixes:  c.ExcludedPrefixes,
	}
}

// EventsEnabled reports whether domain events are published to Kafka.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
