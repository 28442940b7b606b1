package router

import (
	"sort"
	"sync"

	"github.com/bosshub/bosshub-go/internal/metrics"
)

// Handler receives decoded messages. It runs on whichever goroutine
// delivered the message and should return quickly.
type Handler func(msg Message)

// Logger is the logging surface the router needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// locker is satisfied by *sync.RWMutex and nopLocker.
type locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// nopLocker is used in cooperative mode where registration and delivery
// always happen on the host's single loop goroutine.
type nopLocker struct{}

func (nopLocker) Lock()    {}
func (nopLocker) Unlock()  {}
func (nopLocker) RLock()   {}
func (nopLocker) RUnlock() {}

// Router maps topics to handlers and dispatches inbound messages.
//
// Resolution order for a delivered message:
//  1. The handler registered for the exact topic
//  2. The global handler
//  3. Otherwise the message is logged and dropped
//
// A Router built with NewThreaded is safe for concurrent Register and
// Deliver calls. One built with NewCooperative is not, and must only be
// used from a single goroutine.
type Router struct {
	mu       locker
	handlers map[string]Handler
	global   Handler

	log     Logger
	metrics *metrics.Metrics
}

// NewCooperative creates a Router without locking.
func NewCooperative(log Logger, m *metrics.Metrics) *Router {
	return newRouter(nopLocker{}, log, m)
}

// NewThreaded creates a Router whose registry is guarded by a RWMutex.
func NewThreaded(log Logger, m *metrics.Metrics) *Router {
	return newRouter(&sync.RWMutex{}, log, m)
}

func newRouter(mu locker, log Logger, m *metrics.Metrics) *Router {
	if log == nil {
		log = nopLogger{}
	}
	return &Router{
		mu:       mu,
		handlers: make(map[string]Handler),
		log:      log,
		metrics:  m,
	}
}

// Register stores the handler for topic, replacing any earlier one.
// A nil handler removes the registration.
func (r *Router) Register(topic string, handler Handler) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if handler == nil {
		delete(r.handlers, topic)
		return nil
	}
	r.handlers[topic] = handler
	return nil
}

// SetGlobal sets the fallback handler. Nil clears it.
func (r *Router) SetGlobal(handler Handler) {
	r.mu.Lock()
	r.global = handler
	r.mu.Unlock()
}

// Has reports whether a topic-specific handler is registered.
func (r *Router) Has(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[topic]
	return ok
}

// Topics returns the topics with a specific handler, sorted.
func (r *Router) Topics() []string {
	r.mu.RLock()
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	r.mu.RUnlock()

	sort.Strings(topics)
	return topics
}

// Deliver decodes raw and invokes the resolved handler synchronously.
//
// It never returns an error: undecodable payloads are delivered as text,
// unmatched messages are dropped with a warning, and handler panics are
// recovered and logged.
func (r *Router) Deliver(topic string, raw []byte) {
	msg := Decode(topic, raw)
	if !msg.JSON {
		r.metrics.RawPayload()
	}

	r.log.Info("mqtt message received", "topic", topic, "payload", msg.Value)

	r.mu.RLock()
	handler, ok := r.handlers[topic]
	route := metrics.RouteTopic
	if !ok {
		handler = r.global
		route = metrics.RouteGlobal
	}
	r.mu.RUnlock()

	if handler == nil {
		r.metrics.MessageRouted(metrics.RouteDropped)
		r.log.Warn("no handler for topic, message dropped", "topic", topic)
		return
	}

	r.metrics.MessageRouted(route)
	r.invoke(handler, msg)
}

// invoke runs handler with panic recovery.
func (r *Router) invoke(handler Handler, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("message handler panic recovered",
				"topic", msg.Topic,
				"panic", rec,
			)
		}
	}()
	handler(msg)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
