package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config that passes all validation checks.
func validConfig() *Config {
	return &Config{
		SMTP: SMTPConfig{
			Port:          587,
			MessageSize:   65536,
			MaxLineLength: 1000,
			Hostname:      "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
			Enabled:    true,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.SMTP.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.port must be between 1 and 65535")
}

func TestValidate_NonPositiveMessageSize(t *testing.T) {
	cfg := validConfig()
	cfg.SMTP.MessageSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.message_size must be positive")
}

func TestValidate_MaxLineLengthBelowFloor(t *testing.T) {
	cfg := validConfig()
	cfg.SMTP.MaxLineLength = 500
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.max_line_length must be at least 1000")
}

func TestValidate_MissingHostname(t *testing.T) {
	cfg := validConfig()
	cfg.SMTP.Hostname = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.hostname is required")
}

func TestValidate_InvalidLoggingLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level must be one of")
}

func TestValidate_InvalidLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format must be one of")
}

func TestValidate_MetricsEnabledWithoutAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.ListenAddr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.listen_addr is required")
}

func TestValidate_MetricsDisabledAllowsEmptyAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.ListenAddr = ""
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_TracingDisabledAllowsEmptyFields(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Enabled = false
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_TracingEnabledRequiresEndpointAndServiceName(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracing.endpoint is required")
	assert.Contains(t, err.Error(), "tracing.service_name is required")
}

func TestValidate_TracingSampleRatioOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = "localhost:4318"
	cfg.Tracing.ServiceName = "smtpsink"
	cfg.Tracing.SampleRatio = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracing.sample_ratio must be between 0 and 1")
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{} // everything zero-valued
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "smtp.port must be between 1 and 65535")
	assert.Contains(t, msg, "smtp.message_size must be positive")
	assert.Contains(t, msg, "smtp.max_line_length must be at least 1000")
	assert.Contains(t, msg, "smtp.hostname is required")
	assert.Contains(t, msg, "logging.level must be one of")
	assert.Contains(t, msg, "logging.format must be one of")
	// Metrics are disabled in the zero value, so no listen address is required.
	assert.NotContains(t, msg, "metrics.listen_addr is required")
}
