package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	configPath := writeConfig(t, `
device:
  id: "dev1"
  kind: "vending"
  stock:
    coke: 10
    pepsi: 5
api:
  server_url: "https://api.example.com/v1"
  key: "file-key"
mqtt:
  mode: "cooperative"
  broker:
    host: "broker.example.com"
    port: 8883
    tls: true
  qos: 1
database:
  journal_keep: 250
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "dev1", cfg.Device.ID)
	assert.Equal(t, "file-key", cfg.API.Key)
	assert.Equal(t, "broker.example.com", cfg.MQTT.Broker.Host)
	assert.True(t, cfg.IsCooperative())
	assert.Equal(t, map[string]int{"coke": 10, "pepsi": 5}, cfg.Device.Stock)
	assert.Equal(t, 250, cfg.Database.JournalKeep)
	// Defaults survive partial files.
	assert.Equal(t, 2, cfg.MQTT.Reconnect.Backoff)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/device.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	configPath := writeConfig(t, "device:\n  id: dev1\n")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.API.Key)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	configPath := writeConfig(t, "device:\n  id: dev1\n")

	_, err := Load(configPath)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_MissingAPIKeyTolerated(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	configPath := writeConfig(t, "api:\n  allow_missing_key: true\n")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.True(t, cfg.MissingKeyTolerated())
}

func TestLoad_ZeroBackoffRejected(t *testing.T) {
	t.Setenv(EnvAPIKey, "k")
	configPath := writeConfig(t, "mqtt:\n  reconnect:\n    backoff: 0\n")

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt.reconnect.backoff")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.API.Key = "k"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing server url", mutate: func(c *Config) { c.API.ServerURL = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.MQTT.Mode = "async" }, wantErr: true},
		{name: "broker port low", mutate: func(c *Config) { c.MQTT.Broker.Port = 0 }, wantErr: true},
		{name: "broker port ignored when mqtt disabled", mutate: func(c *Config) {
			c.MQTT.Enabled = false
			c.MQTT.Broker.Port = 0
		}},
		{name: "negative backoff", mutate: func(c *Config) { c.MQTT.Reconnect.Backoff = -1 }, wantErr: true},
		{name: "zero backoff", mutate: func(c *Config) { c.MQTT.Reconnect.Backoff = 0 }, wantErr: true},
		{name: "database without path", mutate: func(c *Config) {
			c.Database.Enabled = true
			c.Database.Path = ""
		}, wantErr: true},
		{name: "negative journal keep", mutate: func(c *Config) { c.Database.JournalKeep = -1 }, wantErr: true},
		{name: "zero journal keep disables pruning", mutate: func(c *Config) { c.Database.JournalKeep = 0 }},
		{name: "influxdb without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "status server port high", mutate: func(c *Config) {
			c.StatusServer.Enabled = true
			c.StatusServer.Port = 70000
		}, wantErr: true},
		{name: "missing key", mutate: func(c *Config) { c.API.Key = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := Default()
	cfg.API.Timeout = 7
	cfg.MQTT.Reconnect.Backoff = 3
	cfg.Device.HeartbeatInterval = 15

	assert.Equal(t, 7*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, 3*time.Second, cfg.GetReconnectBackoff())
	assert.Equal(t, 15*time.Second, cfg.GetHeartbeatInterval())
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvServerURL, "https://staging.example.com/v1")
	t.Setenv(EnvDeviceID, "a1b2c3")
	t.Setenv(EnvMQTTHost, "mqtt.example.com")
	t.Setenv(EnvMQTTUsername, "testuser")
	t.Setenv(EnvMQTTPassword, "testpass")
	t.Setenv(EnvInfluxToken, "secret-token")

	ApplyEnvOverrides(cfg)

	assert.Equal(t, "env-key", cfg.API.Key)
	assert.Equal(t, "https://staging.example.com/v1", cfg.API.ServerURL)
	assert.Equal(t, "a1b2c3", cfg.Device.ID)
	assert.Equal(t, "mqtt.example.com", cfg.MQTT.Broker.Host)
	assert.Equal(t, "testuser", cfg.MQTT.Auth.Username)
	assert.Equal(t, "testpass", cfg.MQTT.Auth.Password)
	assert.Equal(t, "secret-token", cfg.InfluxDB.Token)
}

func TestApplyEnvOverrides_ExplicitKeyWins(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "explicit"
	t.Setenv(EnvAPIKey, "env-key")

	ApplyEnvOverrides(cfg)

	assert.Equal(t, "explicit", cfg.API.Key)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultServerURL, cfg.API.ServerURL)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
	assert.Equal(t, ModeThreaded, cfg.MQTT.Mode)
	assert.Equal(t, 10*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, 5000, cfg.Database.JournalKeep)
	assert.NoError(t, func() error { cfg.API.Key = "k"; return cfg.Validate() }())
}
