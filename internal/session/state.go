package session

import (
	"errors"
	"fmt"
)

// State is a session lifecycle state. Sessions move
// Uninitialized -> Initializing -> Ready <-> Running -> ShutDown;
// ShutDown is terminal.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateRunning
	StateShutDown
)

// String returns the canonical state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateShutDown:
		return "shutdown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidState is the sentinel wrapped by InvalidStateError.
var ErrInvalidState = errors.New("invalid session state")

// InvalidStateError reports an operation invoked outside its valid
// session state.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: not allowed in session state %s", e.Op, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// isAllowedTransition encodes the lifecycle. The caller holds the session
// lock.
func isAllowedTransition(from, to State) bool {
	switch from {
	case StateUninitialized:
		return to == StateInitializing
	case StateInitializing:
		return to == StateReady || to == StateShutDown
	case StateReady:
		return to == StateRunning || to == StateShutDown
	case StateRunning:
		return to == StateReady
	default:
		return false
	}
}
