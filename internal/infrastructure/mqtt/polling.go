package mqtt

import (
	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
)

// defaultInboxSize is used when the config leaves mqtt.inbox_size unset.
const defaultInboxSize = 64

// inbound is a queued message awaiting Pump.
type inbound struct {
	topic   string
	payload []byte
}

// PollingClient is the cooperative transport.
//
// Paho still runs its network goroutines, but nothing the host registered
// ever runs on them: inbound messages and connection-loss notices are queued
// and only handed to the host's handlers from inside Pump. Hosts call Pump
// from their main loop; it never blocks.
//
// SetMessageHandler and SetConnectionLostHandler must be called from the
// same goroutine that calls Pump, before the first Connect.
type PollingClient struct {
	*Client

	inbox chan inbound
	lost  chan error

	onMessage  func(topic string, payload []byte)
	onConnLost func(err error)
	onDrop     func()
}

// NewPollingClient creates a disconnected cooperative transport for deviceID.
func NewPollingClient(cfg config.MQTTConfig, deviceID string) *PollingClient {
	size := cfg.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}

	p := &PollingClient{
		Client: NewClient(cfg, deviceID),
		inbox:  make(chan inbound, size),
		lost:   make(chan error, 1),
	}
	p.Client.SetMessageHandler(p.enqueue)
	p.Client.SetConnectionLostHandler(p.enqueueLost)

	return p
}

// SetMessageHandler sets the callback Pump uses for inbound messages.
func (p *PollingClient) SetMessageHandler(fn func(topic string, payload []byte)) {
	p.onMessage = fn
}

// SetConnectionLostHandler sets the callback Pump uses when the session drops.
func (p *PollingClient) SetConnectionLostHandler(fn func(err error)) {
	p.onConnLost = fn
}

// SetDropHandler sets a callback invoked when a message is dropped because
// the inbox is full. It runs on a paho goroutine.
func (p *PollingClient) SetDropHandler(fn func()) {
	p.onDrop = fn
}

// Pump handles at most one pending event and returns immediately.
//
// Queued messages are handled before a pending connection-loss notice so
// that everything received before the drop is still delivered.
//
// Returns:
//   - bool: true if an event was handled
func (p *PollingClient) Pump() bool {
	select {
	case m := <-p.inbox:
		if p.onMessage != nil {
			p.onMessage(m.topic, m.payload)
		}
		return true
	default:
	}

	select {
	case err := <-p.lost:
		if p.onConnLost != nil {
			p.onConnLost(err)
		}
		return true
	default:
	}

	return false
}

// Pending returns the number of queued inbound messages.
func (p *PollingClient) Pending() int {
	return len(p.inbox)
}

// enqueue runs on paho's goroutine.
func (p *PollingClient) enqueue(topic string, payload []byte) {
	select {
	case p.inbox <- inbound{topic: topic, payload: payload}:
	default:
		if logger := p.getLogger(); logger != nil {
			logger.Warn("MQTT inbox full, message dropped", "topic", topic)
		}
		if p.onDrop != nil {
			p.onDrop()
		}
	}
}

// enqueueLost runs on paho's goroutine. One pending notice is enough.
func (p *PollingClient) enqueueLost(err error) {
	select {
	case p.lost <- err:
	default:
	}
}
