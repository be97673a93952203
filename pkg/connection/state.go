// Package connection maintains one logical duplex session to the backend:
// dial, reconnect with capped exponential backoff, heartbeat, and ordered
// dispatch of decoded frames to registered handlers.
package connection

// State is the lifecycle position of the logical connection.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
