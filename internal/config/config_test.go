package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, env := range os.Environ() {
		if len(env) > 9 && env[:9] == "SMTPSINK_" {
			if idx := strings.IndexByte(env, '='); idx > 0 {
				key := env[:idx]
				t.Setenv(key, os.Getenv(key)) // register for cleanup
				_ = os.Unsetenv(key)
			}
		}
	}

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 65536, cfg.SMTP.MessageSize)
	assert.Equal(t, 1000, cfg.SMTP.MaxLineLength)
	assert.Equal(t, "localhost", cfg.SMTP.Hostname)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
	assert.True(t, cfg.Metrics.Enabled)

	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "smtpsink", cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SMTPSINK_SMTP_PORT", "2525")
	t.Setenv("SMTPSINK_LOGGING_LEVEL", "debug")
	t.Setenv("SMTPSINK_METRICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)

	// Defaults still apply to keys we didn't override.
	assert.Equal(t, 65536, cfg.SMTP.MessageSize)
	assert.Equal(t, "localhost", cfg.SMTP.Hostname)
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "loading config file")
}
