package supervisor

import (
	"context"

	"github.com/bosshub/bosshub-go/internal/router"
)

// Transport is the MQTT session the Supervisor drives.
// mqtt.Client and mqtt.PollingClient implement it.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte) error
	Disconnect()
	SetMessageHandler(fn func(topic string, payload []byte))
	SetConnectionLostHandler(fn func(err error))
}

// Pumper is implemented by cooperative transports. Pump handles at most one
// pending event and never blocks.
type Pumper interface {
	Pump() bool
}

// Dispatcher receives inbound messages. *router.Router implements it.
type Dispatcher interface {
	Register(topic string, handler router.Handler) error
	SetGlobal(handler router.Handler)
	Deliver(topic string, raw []byte)
}

// Logger is the logging surface the Supervisor needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
