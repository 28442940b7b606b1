package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when neither the config file nor the
// BOSSHUB_API_KEY environment variable supplies a platform API key.
// It is the only configuration error that stops client construction.
var ErrMissingAPIKey = errors.New("config: API key is missing (set api.key or BOSSHUB_API_KEY)")

// Environment variable names.
const (
	EnvAPIKey       = "BOSSHUB_API_KEY"
	EnvConfigPath   = "BOSSHUB_CONFIG"
	EnvServerURL    = "BOSSHUB_SERVER_URL"
	EnvDeviceID     = "BOSSHUB_DEVICE_ID"
	EnvMQTTHost     = "BOSSHUB_MQTT_HOST"
	EnvMQTTUsername = "BOSSHUB_MQTT_USERNAME"
	EnvMQTTPassword = "BOSSHUB_MQTT_PASSWORD"
	EnvInfluxToken  = "BOSSHUB_INFLUXDB_TOKEN"
)

// MQTT scheduling modes.
const (
	// ModeThreaded delivers inbound messages on the transport's own goroutines.
	ModeThreaded = "threaded"

	// ModeCooperative queues inbound messages until the host loop pumps them.
	ModeCooperative = "cooperative"
)

// DefaultServerURL is the platform REST base URL used when none is configured.
const DefaultServerURL = "https://api.bosshub.io/v1"

// Config is the root configuration structure for a BossHub device.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device       DeviceConfig       `yaml:"device"`
	API          APIConfig          `yaml:"api"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Database     DatabaseConfig     `yaml:"database"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
	StatusServer StatusServerConfig `yaml:"status_server"`
}

// DeviceConfig describes the device this SDK runs on.
type DeviceConfig struct {
	// ID overrides the hardware-derived identity. Leave empty to derive it.
	ID string `yaml:"id"`

	// Kind is informational: vending, washing, pos, ...
	Kind string `yaml:"kind"`

	// Platform is sent in the X-Platform header.
	Platform string `yaml:"platform"`

	// HeartbeatInterval is the agent heartbeat period in seconds. 0 disables it.
	HeartbeatInterval int `yaml:"heartbeat_interval"`

	// Stock is the static stock table the agent reports for CHECK_STOCK.
	Stock map[string]int `yaml:"stock"`
}

// APIConfig contains the platform REST API settings.
type APIConfig struct {
	ServerURL string `yaml:"server_url"`
	Key       string `yaml:"key"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// AllowMissingKey downgrades a missing API key from an error to a warning.
	// Intended for development builds only.
	AllowMissingKey bool `yaml:"allow_missing_key"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Mode      string              `yaml:"mode"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// InboxSize bounds the cooperative-mode inbound queue.
	InboxSize int `yaml:"inbox_size"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientID is filled from the device identity when empty.
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// Backoff is the fixed wait before a reconnect attempt, in seconds.
	Backoff int `yaml:"backoff"`
}

// DatabaseConfig contains the local SQLite store settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// JournalKeep is how many journal entries survive each prune.
	// 0 keeps everything.
	JournalKeep int `yaml:"journal_keep"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StatusServerConfig contains the local diagnostics HTTP server settings.
type StatusServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
// Callers that build configuration in code start from here.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Kind:              "generic",
			Platform:          "go",
			HeartbeatInterval: 10,
		},
		API: APIConfig{
			ServerURL: DefaultServerURL,
			Timeout:   10,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Mode:    ModeThreaded,
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				Backoff: 2,
			},
			InboxSize: 64,
		},
		Database: DatabaseConfig{
			Path:        "./data/bosshub.db",
			WALMode:     true,
			BusyTimeout: 5,
			JournalKeep: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		StatusServer: StatusServerConfig{
			Host: "127.0.0.1",
			Port: 9100,
		},
	}
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// The API key is only taken from the environment when the file left it empty.
func ApplyEnvOverrides(cfg *Config) {
	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv(EnvAPIKey)
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.API.ServerURL = v
	}
	if v := os.Getenv(EnvDeviceID); v != "" {
		cfg.Device.ID = v
	}

	// MQTT
	if v := os.Getenv(EnvMQTTHost); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv(EnvMQTTUsername); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv(EnvInfluxToken); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// A missing API key is reported as ErrMissingAPIKey (wrapped) so callers can
// tell it apart from ordinary field errors. When api.allow_missing_key is set
// the key check is skipped; see MissingKeyTolerated.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.ServerURL == "" {
		errs = append(errs, "api.server_url is required")
	}
	if c.API.Timeout < 0 {
		errs = append(errs, "api.timeout must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	switch strings.ToLower(c.MQTT.Mode) {
	case ModeThreaded, ModeCooperative, "":
	default:
		errs = append(errs, "mqtt.mode must be threaded or cooperative")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535) {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Reconnect.Backoff <= 0 {
		errs = append(errs, "mqtt.reconnect.backoff must be at least 1 second")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}
	if c.Database.JournalKeep < 0 {
		errs = append(errs, "database.journal_keep must not be negative")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.StatusServer.Enabled && (c.StatusServer.Port < 1 || c.StatusServer.Port > 65535) {
		errs = append(errs, "status_server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	if c.API.Key == "" && !c.API.AllowMissingKey {
		return ErrMissingAPIKey
	}

	return nil
}

// MissingKeyTolerated reports whether the config has no API key but is
// allowed to run without one. Callers log a warning in that case.
func (c *Config) MissingKeyTolerated() bool {
	return c.API.Key == "" && c.API.AllowMissingKey
}

// IsCooperative reports whether MQTT runs in cooperative (pumped) mode.
func (c *Config) IsCooperative() bool {
	return strings.ToLower(c.MQTT.Mode) == ModeCooperative
}

// GetRequestTimeout returns the API request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// GetReconnectBackoff returns the MQTT reconnect backoff as a Duration.
func (c *Config) GetReconnectBackoff() time.Duration {
	return time.Duration(c.MQTT.Reconnect.Backoff) * time.Second
}

// GetHeartbeatInterval returns the heartbeat period as a Duration.
func (c *Config) GetHeartbeatInterval() time.Duration {
	return time.Duration(c.Device.HeartbeatInterval) * time.Second
}
