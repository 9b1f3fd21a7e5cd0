package reindex

import "sync"

// State is a phase of the two-phase backup-then-commit protocol.
type State int

// Run states.
const (
	StateNotStarted State = iota
	StateBackedUp
	StateCommitting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateBackedUp:
		return "BackedUp"
	case StateCommitting:
		return "Committing"
	case StateDone:
		return "Done"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// transitions lists every legal move. NotStarted never moves straight to Committing.
var transitions = map[State][]State{
	StateNotStarted: {StateBackedUp, StateAborted},
	StateBackedUp:   {StateCommitting, StateAborted},
	StateCommitting: {StateDone, StateAborted},
}

// dryTransitions is used by dry runs, which never write and never snapshot.
var dryTransitions = map[State][]State{
	StateNotStarted: {StateDone, StateAborted},
}

// machine tracks the state of one run.
type machine struct {
	mu    sync.Mutex
	state State
	edges map[State][]State
	trail []State
}

func newMachine(dryRun bool) *machine {
	edges := transitions
	if dryRun {
		edges = dryTransitions
	}
	return &machine{state: StateNotStarted, edges: edges, trail: []State{StateNotStarted}}
}

// to moves the machine to next, or returns a StateError.
func (m *machine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range m.edges[m.state] {
		if allowed == next {
			m.state = next
			m.trail = append(m.trail, next)
			return nil
		}
	}
	return &StateError{From: m.state, To: next}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) history() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.trail...)
}
