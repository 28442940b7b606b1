package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang as the background-task transport.
//
// Inbound messages are delivered on paho's goroutines straight into the
// handler set with SetMessageHandler, so that handler may run concurrently
// with Publish and Subscribe calls from the host.
//
// Client does not reconnect on its own: paho's auto-reconnect is disabled
// and a lost connection is reported through SetConnectionLostHandler. The
// owner decides when to call Connect again. Each Connect builds a fresh
// paho client from the stored options.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg      config.MQTTConfig
	deviceID string
	clientID string

	client pahomqtt.Client
	mu     sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	onMessage  func(topic string, payload []byte)
	onConnLost func(err error)
	onConnect  func()
	callbackMu sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewClient creates a disconnected transport for deviceID.
//
// The MQTT client id is cfg.Broker.ClientID when set, otherwise it is
// derived from the device identity (see ClientIDFor).
func NewClient(cfg config.MQTTConfig, deviceID string) *Client {
	clientID := cfg.Broker.ClientID
	if clientID == "" {
		clientID = ClientIDFor(deviceID)
	}
	return &Client{
		cfg:      cfg,
		deviceID: deviceID,
		clientID: clientID,
	}
}

// ClientIDFor derives the MQTT client identifier from a device identity.
func ClientIDFor(deviceID string) string {
	return "bosshub-" + deviceID
}

// ClientID returns the MQTT client identifier used on connect.
func (c *Client) ClientID() string {
	return c.clientID
}

// Connect establishes a session with the broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament on the device status topic
//  3. Attempts the connection, bounded by ctx and defaultConnectTimeout
//  4. Publishes online status to devices/{id}/status
//
// A failed attempt is not retried.
//
// Returns:
//   - error: ErrConnectionFailed (wrapped) if the broker cannot be reached
func (c *Client) Connect(ctx context.Context) error {
	opts := buildClientOptions(c.cfg, c.clientID)
	configureLWT(opts, c.deviceID, c.cfg.QoS)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	client := pahomqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), defaultConnectTimeout); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	previous := c.client
	c.client = client
	c.mu.Unlock()

	if previous != nil && previous.IsConnectionOpen() {
		previous.Disconnect(0)
	}

	// The OnConnect callback runs asynchronously and may not have executed
	// yet, so the state is set here as well.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.publishStatus(buildOnlinePayload(c.deviceID, c.clientID))

	return nil
}

// handleConnect is called by paho when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleConnectionLost is called by paho when the connection drops.
func (c *Client) handleConnectionLost(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onConnLost
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// publishStatus publishes a retained device status message, best effort.
func (c *Client) publishStatus(payload string) {
	pc := c.paho()
	if pc == nil {
		return
	}
	token := pc.Publish(Topics{}.DeviceStatus(c.deviceID), byte(c.cfg.QoS), true, payload)
	if !token.WaitTimeout(defaultPublishTimeout) || token.Error() != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT status publish failed", "error", token.Error())
		}
	}
}

// Disconnect gracefully ends the session.
//
// It publishes the graceful offline status (different from the LWT crash
// status) and then disconnects with a quiesce period. Calling Disconnect on
// a client that never connected is a no-op.
func (c *Client) Disconnect() {
	pc := c.paho()
	if pc == nil {
		return
	}

	if c.IsConnected() {
		c.publishStatus(buildOfflinePayload(c.deviceID, c.clientID))
	}

	pc.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()
}

// HealthCheck verifies the MQTT connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	connected := c.connected
	c.connMu.RUnlock()

	pc := c.paho()
	return connected && pc != nil && pc.IsConnected()
}

// SetMessageHandler sets the callback for every inbound message.
func (c *Client) SetMessageHandler(fn func(topic string, payload []byte)) {
	c.callbackMu.Lock()
	c.onMessage = fn
	c.callbackMu.Unlock()
}

// SetConnectionLostHandler sets the callback invoked when the session drops.
func (c *Client) SetConnectionLostHandler(fn func(err error)) {
	c.callbackMu.Lock()
	c.onConnLost = fn
	c.callbackMu.Unlock()
}

// SetOnConnect sets a callback invoked each time a session is established.
func (c *Client) SetOnConnect(fn func()) {
	c.callbackMu.Lock()
	c.onConnect = fn
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// paho returns the current paho client (nil before the first Connect).
func (c *Client) paho() pahomqtt.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// handleMessage is the paho callback for every subscription.
func (c *Client) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}
	}()

	c.callbackMu.RLock()
	fn := c.onMessage
	c.callbackMu.RUnlock()
	if fn != nil {
		fn(msg.Topic(), msg.Payload())
	}
}

// waitToken waits for a paho token, bounded by ctx and timeout.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
