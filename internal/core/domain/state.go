package domain

// State is a Job's position in its lifecycle.
type State string

const (
	StateInactive State = "INACTIVE"
	StateActive   State = "ACTIVE"
	StateComplete State = "COMPLETE"
	StateFailure  State = "FAILURE"
)

// legalTransitions enumerates the allowed State graph. COMPLETE and
// FAILURE are terminal: they have no outgoing edges.
var legalTransitions = map[State]map[State]bool{
	StateInactive: {StateActive: true},
	StateActive:   {StateComplete: true, StateFailure: true},
	StateComplete: {},
	StateFailure:  {},
}

// CanTransition reports whether moving from 'from' to 'to' is legal.
func CanTransition(from, to State) bool {
	next, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
