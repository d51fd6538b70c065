// Package config loads process configuration from TELEMETRYD_* environment
// variables. Command-line flags override these values.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration.
type Config struct {
	Addr string `env:"TELEMETRYD_ADDR" envDefault:":8088"`

	// Journal is the SQLite arrival journal path. Empty disables journaling.
	Journal string `env:"TELEMETRYD_JOURNAL"`

	// Rate is the sustained POST /messages rate per second. 0 disables
	// limiting.
	Rate  float64 `env:"TELEMETRYD_RATE" envDefault:"0"`
	Burst int     `env:"TELEMETRYD_BURST" envDefault:"100"`

	ShutdownTimeout time.Duration `env:"TELEMETRYD_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"TELEMETRYD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TELEMETRYD_LOG_FORMAT" envDefault:"text"`

	// OTLPEndpoint enables metric export to a gRPC collector.
	OTLPEndpoint   string        `env:"TELEMETRYD_OTLP_ENDPOINT"`
	OTLPInsecure   bool          `env:"TELEMETRYD_OTLP_INSECURE" envDefault:"false"`
	MetricInterval time.Duration `env:"TELEMETRYD_METRIC_INTERVAL" envDefault:"15s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges env parsing cannot express.
func (c Config) Validate() error {
	if c.Rate < 0 {
		return fmt.Errorf("invalid rate %v: must be >= 0", c.Rate)
	}
	if c.Rate > 0 && c.Burst < 1 {
		return fmt.Errorf("invalid burst %d: must be >= 1 when rate is set", c.Burst)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// Level resolves LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
