package interpreter

import "fmt"

// State is the execution state of an interpreter.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStepping
	StateWaitingForResponse
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStepping:
		return "stepping"
	case StateWaitingForResponse:
		return "waiting"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Active reports whether the program has been started and not yet finished.
func (s State) Active() bool {
	switch s {
	case StateRunning, StatePaused, StateStepping, StateWaitingForResponse:
		return true
	}
	return false
}

// Pending describes the outstanding request.
type Pending struct {
	ID      string
	Builtin string
	Saved   State // restored when the response is consumed
}

// ControlError is returned by a control call that is not valid in the current
// state.
type ControlError struct {
	Op    string
	State State
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// Stats counts what an interpreter did since Start.
type Stats struct {
	Ticks      int
	Statements int
	LoopCycles int
	Requests   int
	Responses  int
	Errors     int
}
