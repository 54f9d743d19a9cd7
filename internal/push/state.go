package push

// State is the connection state of the push channel.
type State int32

const (
	// StateDisconnected is the initial state, and the state after an
	// explicit Stop (logout, role change).
	StateDisconnected State = iota
	// StateConnecting means a dial is in flight or a backoff wait is
	// pending before the next attempt.
	StateConnecting
	// StateConnected means the handshake succeeded and frames are being
	// read.
	StateConnected
	// StateFailed is terminal: the retry budget was exhausted. Real-time
	// updates are gone until something external rebuilds the channel.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
