package bosshub

import (
	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
	"github.com/bosshub/bosshub-go/internal/platform"
	"github.com/bosshub/bosshub-go/internal/router"
	"github.com/bosshub/bosshub-go/internal/supervisor"
)

// Version is the SDK version reported in logs and on the status server.
const Version = "1.0.0"

// Config is the SDK configuration. Start from DefaultConfig or LoadConfig.
type Config = config.Config

// Message is an inbound MQTT message as handed to a Handler.
type Message = router.Message

// Handler receives MQTT messages. It runs on the transport goroutine in
// threaded mode and inside Loop in cooperative mode.
type Handler = router.Handler

// Response is the decoded JSON object returned by a successful platform call.
type Response = platform.Response

// State is the operating state reported with UpdateStatus.
type State = platform.State

// Device states.
const (
	StateIdle    = platform.StateIdle
	StateBusy    = platform.StateBusy
	StateError   = platform.StateError
	StateOffline = platform.StateOffline
)

// Log levels accepted by Log.
const (
	LevelDebug   = platform.LevelDebug
	LevelInfo    = platform.LevelInfo
	LevelWarning = platform.LevelWarning
	LevelError   = platform.LevelError
)

// ConnectionState is the MQTT session state.
type ConnectionState = supervisor.State

// MQTT connection states.
const (
	Disconnected = supervisor.Disconnected
	Connected    = supervisor.Connected
	Reconnecting = supervisor.Reconnecting
)

// DefaultConfig returns the default configuration with environment
// overrides applied.
func DefaultConfig() *Config {
	cfg := config.Default()
	config.ApplyEnvOverrides(cfg)
	return cfg
}

// LoadConfig reads a YAML configuration file. See config.Load.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
