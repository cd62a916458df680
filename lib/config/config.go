// Package config provides configuration loading and validation for the
// component loader.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Gateway modes.
const (
	GatewayFetch = "fetch"
	GatewayJSONP = "jsonp"
)

// Config is the root configuration structure.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader"`
	Element ElementConfig `yaml:"element"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoaderConfig configures descriptor retrieval.
// Use "fetch" for same-origin endpoints or "jsonp" for cross-origin ones.
type LoaderConfig struct {
	Gateway string            `yaml:"gateway"` // "fetch" or "jsonp"
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ElementConfig configures the custom element binding.
type ElementConfig struct {
	Tag          string `yaml:"tag"`
	FallbackHTML string `yaml:"fallback_html,omitempty"` // Rendered into the element on failure
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	return Parse(data)
}

// Parse builds a configuration from YAML bytes. The browser host reads its
// configuration from the page rather than a file, so this is the common
// entry point.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when none is supplied.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// applyEnvOverrides applies RCMP_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RCMP_LOADER_GATEWAY"); v != "" {
		cfg.Loader.Gateway = v
	}
	if v := os.Getenv("RCMP_LOADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loader.Timeout = d
		}
	}
	if v := os.Getenv("RCMP_ELEMENT_TAG"); v != "" {
		cfg.Element.Tag = v
	}
	if v := os.Getenv("RCMP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RCMP_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RCMP_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Loader.Gateway == "" {
		cfg.Loader.Gateway = GatewayFetch
	}
	if cfg.Loader.Timeout == 0 {
		cfg.Loader.Timeout = 30 * time.Second
	}
	if cfg.Element.Tag == "" {
		cfg.Element.Tag = "remote-component"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "rcmp"
	}
}

func validate(cfg *Config) error {
	switch cfg.Loader.Gateway {
	case GatewayFetch, GatewayJSONP:
	default:
		return fmt.Errorf("loader.gateway must be %q or %q, got %q", GatewayFetch, GatewayJSONP, cfg.Loader.Gateway)
	}

	if cfg.Loader.Timeout < 0 {
		return fmt.Errorf("loader.timeout must not be negative")
	}

	// Custom element names must contain a hyphen and start with a lowercase letter.
	tag := cfg.Element.Tag
	if !strings.Contains(tag, "-") || tag[0] < 'a' || tag[0] > 'z' || strings.ToLower(tag) != tag {
		return fmt.Errorf("element.tag %q is not a valid custom element name", tag)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"console\", got %q", cfg.Logging.Format)
	}

	return nil
}

// NewLogger builds a logger from the logging configuration.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
