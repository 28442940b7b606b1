package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/bosshub/bosshub-go/internal/infrastructure/mqtt"
	"github.com/bosshub/bosshub-go/internal/metrics"
	"github.com/bosshub/bosshub-go/internal/router"
)

// DefaultBackoff is the fixed wait before a reconnect attempt.
const DefaultBackoff = 2 * time.Second

// Options configures a Supervisor.
type Options struct {
	// DeviceID scopes the mandatory command topic. Required.
	DeviceID string

	// Transport is the MQTT session. Required.
	Transport Transport

	// Router dispatches inbound messages. Required.
	Router Dispatcher

	// Backoff is the wait before a reconnect attempt. Zero means DefaultBackoff.
	Backoff time.Duration

	Logger  Logger
	Metrics *metrics.Metrics

	// OnStateChange is called after every state transition. It may run
	// with internal locks held and must not call back into the Supervisor.
	OnStateChange func(State)
}

// Supervisor owns the transport handle and the connection state.
//
// It performs the initial connect and the mandatory subscription to
// devices/{id}/command, records every subscription, and on a transport
// failure makes one reconnect attempt after a fixed backoff, replaying all
// recorded subscriptions. A failed reconnect leaves it Disconnected; the
// next transport error (or an explicit Connect) tries again.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - At most one connect or reconnect attempt runs at a time.
type Supervisor struct {
	deviceID  string
	mandatory string
	transport Transport
	router    Dispatcher
	backoff   time.Duration
	log       Logger
	metrics   *metrics.Metrics
	onChange  func(State)

	state    atomic.Int32
	inflight atomic.Bool
	closed   atomic.Bool

	// subMu guards subs and orders state changes into Connected against
	// Subscribe, so a topic recorded during Reconnecting is never missed
	// by the replay.
	subMu sync.Mutex
	subs  map[string]struct{}

	lifetime context.Context
	cancel   context.CancelFunc

	// sleep waits for the reconnect backoff. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Disconnected Supervisor and takes ownership of the transport's
// message and connection-loss callbacks.
func New(opts Options) (*Supervisor, error) {
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("supervisor: device id is required")
	}
	if opts.Transport == nil || opts.Router == nil {
		return nil, fmt.Errorf("supervisor: transport and router are required")
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	lifetime, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		deviceID:  opts.DeviceID,
		mandatory: mqtt.Topics{}.DeviceCommand(opts.DeviceID),
		transport: opts.Transport,
		router:    opts.Router,
		backoff:   backoff,
		log:       log,
		metrics:   opts.Metrics,
		onChange:  opts.OnStateChange,
		subs:      make(map[string]struct{}),
		lifetime:  lifetime,
		cancel:    cancel,
		sleep:     sleepContext,
	}

	s.transport.SetMessageHandler(s.router.Deliver)
	s.transport.SetConnectionLostHandler(s.onConnectionLost)
	s.metrics.ConnectionState(int(Disconnected))

	return s, nil
}

// MandatoryTopic returns devices/{id}/command.
func (s *Supervisor) MandatoryTopic() string {
	return s.mandatory
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	s.metrics.ConnectionState(int(st))
	if s.onChange != nil && prev != st {
		s.onChange(st)
	}
}

// Connect establishes the session and subscribes to the mandatory topic.
//
// The global handler receives every message whose topic has no specific
// handler, including everything on the command topic unless a handler is
// registered for it. Previously recorded subscriptions are restored too.
//
// On failure the state stays Disconnected and no retry is scheduled.
// Calling Connect while already connected is a no-op.
//
// Returns:
//   - error: ErrConnect (wrapped) on failure, ErrClosed after Close
func (s *Supervisor) Connect(ctx context.Context, global router.Handler) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: another connection attempt is in progress", ErrConnect)
	}
	defer s.inflight.Store(false)

	if s.State() == Connected {
		return nil
	}

	s.router.SetGlobal(global)

	if err := s.transport.Connect(ctx); err != nil {
		s.log.Error("MQTT connect failed", "device_id", s.deviceID, "error", err)
		s.setState(Disconnected)
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	if err := s.restore(); err != nil {
		s.transport.Disconnect()
		s.setState(Disconnected)
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	s.log.Info("MQTT connected", "device_id", s.deviceID, "command_topic", s.mandatory)
	return nil
}

// restore subscribes the mandatory topic, replays every recorded topic and
// moves to Connected. Only a failure on the mandatory topic is an error.
func (s *Supervisor) restore() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.subs[s.mandatory] = struct{}{}
	if err := s.transport.Subscribe(s.mandatory); err != nil {
		s.log.Error("MQTT mandatory subscribe failed", "topic", s.mandatory, "error", err)
		return fmt.Errorf("subscribing %s: %w", s.mandatory, err)
	}

	for _, topic := range sortedKeys(s.subs) {
		if topic == s.mandatory {
			continue
		}
		if err := s.transport.Subscribe(topic); err != nil {
			s.log.Warn("MQTT re-subscribe failed", "topic", topic, "error", err)
		}
	}

	s.setState(Connected)
	return nil
}

// Subscribe records topic and, when handler is non-nil, registers it with
// the router.
//
// Outside Connected and Reconnecting the call is ignored. In Connected the
// broker subscription is made immediately; in Reconnecting it is left to the
// replay. A transport failure is returned but the topic stays recorded, so
// the next reconnect retries it.
func (s *Supervisor) Subscribe(topic string, handler router.Handler) error {
	if topic == "" {
		return router.ErrInvalidTopic
	}

	s.subMu.Lock()
	st := s.State()
	if st == Disconnected {
		s.subMu.Unlock()
		s.log.Debug("subscribe ignored while disconnected", "topic", topic)
		return nil
	}
	s.subs[topic] = struct{}{}
	s.subMu.Unlock()

	if handler != nil {
		if err := s.router.Register(topic, handler); err != nil {
			return err
		}
	}

	if st != Connected {
		return nil
	}

	if err := s.transport.Subscribe(topic); err != nil {
		s.log.Warn("MQTT subscribe failed", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	return nil
}

// Unsubscribe forgets topic and its handler. The mandatory topic cannot be
// removed.
func (s *Supervisor) Unsubscribe(topic string) error {
	if topic == s.mandatory {
		return ErrMandatoryTopic
	}

	s.subMu.Lock()
	delete(s.subs, topic)
	s.subMu.Unlock()

	_ = s.router.Register(topic, nil)

	if s.State() != Connected {
		return nil
	}
	if err := s.transport.Unsubscribe(topic); err != nil {
		s.log.Warn("MQTT unsubscribe failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

// Subscriptions returns the recorded topics, sorted.
func (s *Supervisor) Subscriptions() []string {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return sortedKeys(s.subs)
}

// Publish hands payload to the transport.
//
// []byte, json.RawMessage and string payloads are sent as-is; anything else
// is encoded as JSON. Outside Connected nothing is sent and Publish returns
// false straight away; it never waits for a reconnect.
//
// Returns:
//   - bool: true if the transport accepted the message
func (s *Supervisor) Publish(topic string, payload any) bool {
	if topic == "" {
		s.metrics.Published(metrics.ResultRejected)
		s.log.Warn("publish rejected: empty topic")
		return false
	}

	if s.State() != Connected {
		s.metrics.Published(metrics.ResultSkipped)
		s.log.Debug("publish dropped while not connected", "topic", topic)
		return false
	}

	raw, err := encodePayload(payload)
	if err != nil {
		s.metrics.Published(metrics.ResultRejected)
		s.log.Warn("publish rejected: payload not encodable", "topic", topic, "error", err)
		return false
	}

	if err := s.transport.Publish(topic, raw); err != nil {
		s.metrics.Published(metrics.ResultError)
		s.log.Warn("MQTT publish failed", "topic", topic, "error", err)
		return false
	}

	s.metrics.Published(metrics.ResultOK)
	return true
}

// encodePayload converts a publish payload to bytes.
func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(p)
	}
}

// HandleTransportError makes a single reconnect attempt.
//
// It waits the fixed backoff, reconnects, and replays every recorded
// subscription. If an attempt is already running the call returns false at
// once. On failure the state becomes Disconnected and nothing further is
// scheduled.
//
// Returns:
//   - bool: true if the session was re-established
func (s *Supervisor) HandleTransportError(ctx context.Context, cause error) bool {
	if s.closed.Load() {
		return false
	}
	if !s.inflight.CompareAndSwap(false, true) {
		s.log.Debug("reconnect already in progress", "error", cause)
		return false
	}
	defer s.inflight.Store(false)

	s.setState(Reconnecting)
	s.log.Warn("MQTT connection lost, reconnecting",
		"error", cause,
		"backoff", s.backoff,
	)

	if err := s.sleep(ctx, s.backoff); err != nil {
		s.setState(Disconnected)
		s.metrics.Reconnect(metrics.ResultSkipped)
		s.log.Warn("reconnect abandoned", "error", err)
		return false
	}

	if err := s.transport.Connect(ctx); err != nil {
		s.setState(Disconnected)
		s.metrics.Reconnect(metrics.ResultError)
		s.log.Error("MQTT reconnect failed", "error", err)
		return false
	}

	if err := s.restore(); err != nil {
		s.transport.Disconnect()
		s.setState(Disconnected)
		s.metrics.Reconnect(metrics.ResultError)
		return false
	}

	s.metrics.Reconnect(metrics.ResultOK)
	s.log.Info("MQTT reconnected", "subscriptions", len(s.Subscriptions()))
	return true
}

// onConnectionLost is the transport callback. Threaded transports call it
// on their own goroutine; cooperative ones from inside Pump.
func (s *Supervisor) onConnectionLost(err error) {
	if s.closed.Load() {
		return
	}
	s.HandleTransportError(s.lifetime, err)
}

// Pump lets a cooperative transport handle at most one pending event.
// With a threaded transport it does nothing and returns false.
func (s *Supervisor) Pump() bool {
	if p, ok := s.transport.(Pumper); ok {
		return p.Pump()
	}
	return false
}

// HealthCheck reports whether the session is up.
func (s *Supervisor) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("supervisor health check: %w", err)
	}
	if s.State() != Connected {
		return fmt.Errorf("%w (state %s)", ErrNotConnected, s.State())
	}
	return nil
}

// Close disconnects and stops any pending reconnect backoff.
// A closed Supervisor cannot be reconnected.
func (s *Supervisor) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
	s.transport.Disconnect()
	s.setState(Disconnected)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
