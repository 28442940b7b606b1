package bosshub

import (
	"errors"

	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
	"github.com/bosshub/bosshub-go/internal/platform"
	"github.com/bosshub/bosshub-go/internal/supervisor"
)

// Errors returned by the Client. Use errors.Is() to check them.
var (
	// ErrMissingAPIKey stops construction when no API key is configured.
	ErrMissingAPIKey = config.ErrMissingAPIKey

	// ErrRequestFailed matches every failed platform call.
	ErrRequestFailed = platform.ErrRequestFailed

	// ErrConnect is returned by ConnectMQTT when the broker cannot be reached.
	ErrConnect = supervisor.ErrConnect

	// ErrClosed is returned by ConnectMQTT after Close.
	ErrClosed = supervisor.ErrClosed

	// ErrMQTTDisabled is returned by ConnectMQTT when mqtt.enabled is false.
	ErrMQTTDisabled = errors.New("bosshub: MQTT is disabled in configuration")
)

// RequestError carries the endpoint and status of a failed platform call.
type RequestError = platform.RequestError
