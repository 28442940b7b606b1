package supervisor

// State is the connection state owned by the Supervisor.
type State int32

const (
	// Disconnected: no session. Publish is a no-op and Subscribe is ignored.
	Disconnected State = iota

	// Connected: session established, mandatory topic subscribed.
	Connected

	// Reconnecting: a single reconnect attempt is in progress.
	Reconnecting
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
