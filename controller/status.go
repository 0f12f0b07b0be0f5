// Package controller implements the top-level client lifecycle: the
// connection state machine, the shared connection/rate/retry limiter, and
// the public connect/authenticate/tunnel API (component C6).
package controller

// Status is the top-level connection state machine (spec.md §3/§4.6).
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	Tunneling
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Tunneling:
		return "tunneling"
	default:
		return "unknown"
	}
}
