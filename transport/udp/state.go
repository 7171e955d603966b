// File: transport/udp/state.go
// Author: momentics <momentics@gmail.com>
//
// Transport and connection lifecycle states.

package udp

// State is the transport lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateStarted
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ConnState is the per-connection lifecycle state.
type ConnState int32

const (
	ConnCreated ConnState = iota
	ConnConfiguring
	ConnRegistering
	ConnReady
	ConnClosing
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnCreated:
		return "created"
	case ConnConfiguring:
		return "configuring"
	case ConnRegistering:
		return "registering"
	case ConnReady:
		return "ready"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// canMove lists the allowed forward transitions. Closing is reachable
// from every non-terminal state; Closed is terminal.
func (s ConnState) canMove(to ConnState) bool {
	switch to {
	case ConnConfiguring:
		return s == ConnCreated
	case ConnRegistering:
		return s == ConnConfiguring
	case ConnReady:
		return s == ConnRegistering
	case ConnClosing:
		return s < ConnClosing
	case ConnClosed:
		return s == ConnClosing
	default:
		return false
	}
}
