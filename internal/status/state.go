package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ArkBriar/smartqq/internal/bus"
)

// State is the daemon's view of the QQ session.
type State string

const (
	Booting        State = "BOOTING"
	AuthRequired   State = "AUTH_REQUIRED"
	Authenticating State = "AUTHENTICATING"
	Online         State = "ONLINE"
	Degraded       State = "DEGRADED"
	Error          State = "ERROR"
)

var validTransitions = map[State][]State{
	Booting:        {AuthRequired, Error},
	AuthRequired:   {Authenticating, Error},
	Authenticating: {Online, AuthRequired, Error},
	Online:         {Degraded, AuthRequired, Error},
	Degraded:       {Online, AuthRequired, Error},
	Error:          {Booting, AuthRequired},
}

// Machine tracks and enforces session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine in the Booting state. b may be nil.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CanTransition reports whether moving from the current state to to is
// allowed.
func (m *Machine) CanTransition(to State) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(validTransitions[m.current], to)
}

// Transition moves to a new state and publishes a status change.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
