package bosshub

import (
	"context"

	"github.com/bosshub/bosshub-go/internal/commands"
	"github.com/bosshub/bosshub-go/internal/infrastructure/mqtt"
)

// ConnectMQTT connects to the broker and subscribes to the device command
// topic. handler receives every message without a topic-specific handler,
// including commands. A failed connect is not retried.
//
// Returns:
//   - error: ErrMQTTDisabled, or ErrConnect (wrapped) if the broker is unreachable
func (c *Client) ConnectMQTT(ctx context.Context, handler Handler) error {
	if !c.cfg.MQTT.Enabled {
		return ErrMQTTDisabled
	}
	return c.sup.Connect(ctx, c.observe(handler))
}

// Subscribe adds topic to the session and routes its messages to handler.
// A nil handler leaves the topic to the global handler. The call is ignored
// while MQTT is disconnected. The subscription survives reconnects.
func (c *Client) Subscribe(topic string, handler Handler) error {
	return c.sup.Subscribe(topic, c.observe(handler))
}

// Unsubscribe removes topic. The command topic cannot be removed.
func (c *Client) Unsubscribe(topic string) error {
	return c.sup.Unsubscribe(topic)
}

// Publish sends payload on topic. []byte and string are sent as-is, other
// values as JSON. It returns false, without sending, unless connected.
func (c *Client) Publish(topic string, payload any) bool {
	return c.sup.Publish(topic, payload)
}

// Loop handles at most one pending MQTT event in cooperative mode and never
// blocks. Handlers and reconnects run inside it. In threaded mode it is a
// no-op.
//
// Returns:
//   - bool: true if an event was handled
func (c *Client) Loop() bool {
	return c.sup.Pump()
}

// State returns the MQTT session state.
func (c *Client) State() ConnectionState {
	return c.sup.State()
}

// ConnectionState returns the MQTT session state as a string.
func (c *Client) ConnectionState() string {
	return c.sup.State().String()
}

// Subscriptions lists the recorded MQTT topics, command topic included.
func (c *Client) Subscriptions() []string {
	return c.sup.Subscriptions()
}

// CommandTopic returns devices/{device_id}/command.
func (c *Client) CommandTopic() string {
	return c.sup.MandatoryTopic()
}

// ResponseTopic returns devices/{device_id}/response.
func (c *Client) ResponseTopic() string {
	return mqtt.Topics{}.DeviceResponse(c.deviceID)
}

// observe wraps handler so that messages on the command topic are
// journaled and mirrored to telemetry before handler runs. A nil handler
// stays nil so the router's fallback still applies.
func (c *Client) observe(handler Handler) Handler {
	if handler == nil {
		return nil
	}
	return func(msg Message) {
		if msg.Topic == c.sup.MandatoryTopic() {
			if c.recorder != nil {
				c.recorder.RecordCommand(msg.Topic, msg.Text())
			}
			c.influx.WriteCommand(msg.Topic, commands.Name(msg))
		}
		handler(msg)
	}
}
