package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and invalid values.
// It collects all failures into a single error so the operator sees every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, "smtp.port must be between 1 and 65535")
	}
	if c.SMTP.MessageSize <= 0 {
		errs = append(errs, "smtp.message_size must be positive")
	}
	if c.SMTP.MaxLineLength < 1000 {
		errs = append(errs, "smtp.max_line_length must be at least 1000")
	}
	if c.SMTP.Hostname == "" {
		errs = append(errs, "smtp.hostname is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, "logging.format must be one of json, text")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, "metrics.listen_addr is required when metrics.enabled is true")
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			errs = append(errs, "tracing.endpoint is required when tracing.enabled is true")
		}
		if c.Tracing.ServiceName == "" {
			errs = append(errs, "tracing.service_name is required when tracing.enabled is true")
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			errs = append(errs, "tracing.sample_ratio must be between 0 and 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
