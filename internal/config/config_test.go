package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.RefreshInterval)
	assert.Equal(t, 20, cfg.Server.WindowSize)
	assert.Equal(t, 30, cfg.Server.HistoryRows)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.Equal(t, 34.0, cfg.Thresholds.TemperatureHigh)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  addr: ":9000"
  refresh_interval: 5s
  window_size: 50
thresholds:
  temperature_high: 30
email:
  enabled: true
  host: smtp.example.com
  username: ops@example.com
  to: [oncall@example.com]
`)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RefreshInterval)
	assert.Equal(t, 50, cfg.Server.WindowSize)
	assert.Equal(t, 30.0, cfg.Thresholds.TemperatureHigh)
	// untouched fields keep their defaults
	assert.Equal(t, 60.0, cfg.Thresholds.HumidityHigh)
	assert.Equal(t, "ops@example.com", cfg.Email.From)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CSMS_ADDR", ":7070")
	t.Setenv("CSMS_EMAIL_TO", "a@example.com, b@example.com")
	t.Setenv("CSMS_SMTP_HOST", "mail.example.com")
	t.Setenv("CSMS_SMTP_PORT", "2525")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.To)
	assert.Equal(t, 2525, cfg.Email.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestEnvOverrideBadPort(t *testing.T) {
	t.Setenv("CSMS_SMTP_PORT", "smtp")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"clamps refresh", func(c *Config) { c.Server.RefreshInterval = time.Millisecond }, false},
		{"no username", func(c *Config) { c.Auth.Username = "" }, true},
		{"no password", func(c *Config) { c.Auth.Password = ""; c.Auth.PasswordHash = "" }, true},
		{"hash only", func(c *Config) { c.Auth.Password = ""; c.Auth.PasswordHash = "$2a$10$abc" }, false},
		{"half tls", func(c *Config) { c.Server.TLSCert = "cert.pem" }, true},
		{"email without host", func(c *Config) { c.Email.Enabled = true; c.Email.To = []string{"x@y"} }, true},
		{"mqtt without topic", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Topic = "" }, true},
		{"warm above high", func(c *Config) { c.Thresholds.TemperatureWarm = 40 }, true},
		{"warm equals high", func(c *Config) { c.Thresholds.TemperatureWarm = c.Thresholds.TemperatureHigh }, true},
		{"co2 moderate above high", func(c *Config) { c.Thresholds.CO2Moderate = 1500 }, true},
		{"humidity over 100", func(c *Config) { c.Thresholds.HumidityHigh = 120 }, true},
		{"zero pressure", func(c *Config) { c.Thresholds.PressureLow = 0 }, true},
		{"zero pm25", func(c *Config) { c.Thresholds.PM25Moderate = 0 }, true},
		{"custom thresholds", func(c *Config) { c.Thresholds.TemperatureHigh = 30; c.Thresholds.TemperatureWarm = 28 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cfg.Server.RefreshInterval, 500*time.Millisecond)
		})
	}
}
