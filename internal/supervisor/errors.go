package supervisor

import "errors"

// Errors returned by the supervisor. Use errors.Is() to check them.
var (
	// ErrConnect is returned when a connection attempt fails.
	// The supervisor does not retry; the caller decides when to try again.
	ErrConnect = errors.New("supervisor: connect failed")

	// ErrSubscribe is returned when the transport rejects a subscription.
	// The topic stays recorded and is replayed after the next reconnect.
	ErrSubscribe = errors.New("supervisor: subscribe failed")

	// ErrNotConnected is returned by HealthCheck outside the Connected state.
	ErrNotConnected = errors.New("supervisor: not connected")

	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("supervisor: closed")

	// ErrMandatoryTopic is returned when unsubscribing the device command topic.
	ErrMandatoryTopic = errors.New("supervisor: the device command topic cannot be unsubscribed")
)
