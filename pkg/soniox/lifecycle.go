package soniox

import (
	"fmt"
	"slices"
	"sync"
)

// SessionState is the lifecycle state of a streaming session.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateActive
	StateDraining
	StateClosed
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

var transitions = map[SessionState][]SessionState{
	StateConnecting: {StateActive, StateClosed, StateFailed},
	StateActive:     {StateDraining, StateClosed, StateFailed},
	StateDraining:   {StateClosed, StateFailed},
}

// lifecycle guards the state of a session. The first transition into a
// terminal state wins and records the terminal error.
type lifecycle struct {
	mu    sync.Mutex
	state SessionState
	err   error
	done  chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateConnecting, done: make(chan struct{})}
}

func (l *lifecycle) State() SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the terminal error, nil while running or after a clean close.
func (l *lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done is closed on the transition into a terminal state.
func (l *lifecycle) Done() <-chan struct{} {
	return l.done
}

// transition moves to state to. It reports false if the move is not allowed
// from the current state.
func (l *lifecycle) transition(to SessionState, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transitionLocked(to, err)
}

// transitionIf is transition guarded by the expected current state.
func (l *lifecycle) transitionIf(from, to SessionState, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return false
	}
	return l.transitionLocked(to, err)
}

// whileRunning runs fn unless the state is terminal, holding off any
// transition until fn returns. It reports whether fn ran.
func (l *lifecycle) whileRunning(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Terminal() {
		return false
	}
	fn()
	return true
}

func (l *lifecycle) transitionLocked(to SessionState, err error) bool {
	if !slices.Contains(transitions[l.state], to) {
		return false
	}
	l.state = to
	if to.Terminal() {
		l.err = err
		close(l.done)
	}
	return true
}
