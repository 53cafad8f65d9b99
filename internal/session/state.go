// Lifecycle states of a websocket session in Tracker.

package session

import (
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthorized
	StateActive
	StateClosing
	StateClosed
)

var stateNames = [...]string{"connecting", "authenticating", "authorized", "active", "closing", "closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ErrInvalidTransition is returned for a transition the lifecycle doesn't allow.
var ErrInvalidTransition = errors.New("invalid session state transition")

// Rejected handshakes go straight to closed, only an active session passes through closing.
var transitions = map[State][]State{
	StateConnecting:     {StateAuthenticating, StateClosed},
	StateAuthenticating: {StateAuthorized, StateClosed},
	StateAuthorized:     {StateActive, StateClosed},
	StateActive:         {StateClosing},
	StateClosing:        {StateClosed},
}

type stateMachine struct {
	mu    sync.Mutex
	state State
}

func (m *stateMachine) get() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *stateMachine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
}

// beginClose moves an active session to closing and reports true.
// Any state before active goes straight to closed, so a concurrent activation can no longer succeed.
func (m *stateMachine) beginClose() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateActive:
		m.state = StateClosing
		return true
	case StateClosing, StateClosed:
		return false
	default:
		m.state = StateClosed
		return false
	}
}
