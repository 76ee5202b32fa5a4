package device

import (
	"fmt"
	"slices"
	"time"

	"github.com/danmuck/frostctl/internal/protocol"
)

// State is the position of one exchange in the session state machine.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingPages
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingPages:
		return "awaiting_pages"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:          {StateSending, StateFailed},
	StateSending:       {StateSending, StateAwaitingPages, StateComplete, StateFailed},
	StateAwaitingPages: {StateAwaitingPages, StateComplete, StateFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// exchange tracks one logical operation from submit to result.
type exchange struct {
	id      string
	op      Op
	state   State
	chunk   int
	chunks  int
	pages   int
	status  protocol.Status
	started time.Time
}

func (x *exchange) to(next State) error {
	if !CanTransition(x.state, next) {
		return fmt.Errorf("%w: %s %s -> %s", protocol.ErrIllegalTransition, x.op, x.state, next)
	}
	x.state = next
	return nil
}

func (x *exchange) terminal() bool {
	return x.state == StateComplete || x.state == StateFailed
}
