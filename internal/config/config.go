package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete application configuration.
type Config struct {
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// SMTPConfig holds the listener's protocol settings.
type SMTPConfig struct {
	Port          int    `mapstructure:"port"`
	MessageSize   int    `mapstructure:"message_size"`
	MaxLineLength int    `mapstructure:"max_line_length"`
	Hostname      string `mapstructure:"hostname"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Enabled    bool   `mapstructure:"enabled"`
}

// TracingConfig holds OpenTelemetry exporter settings. Disabled by default
// since a local sink rarely has a collector to send to.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

// defaults returns the default configuration as a flat map using koanf's "."
// delimiter for nested keys.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"smtp.port":            587,
		"smtp.message_size":    65536,
		"smtp.max_line_length": 1000,
		"smtp.hostname":        "localhost",

		"logging.level":  "info",
		"logging.format": "json",

		"metrics.listen_addr": ":9090",
		"metrics.enabled":     true,

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4318",
		"tracing.service_name": "smtpsink",
		"tracing.sample_ratio": 1.0,
		"tracing.insecure":     true,
	}
}

// Load reads the configuration from defaults, an optional YAML file, and
// environment variables (prefix SMTPSINK_). Later sources override earlier
// ones.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// SMTPSINK_SMTP_PORT -> smtp.port
	if err := k.Load(env.Provider("SMTPSINK_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "SMTPSINK_")),
			"_", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "mapstructure",
	}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}
