package game

import (
	"errors"
	"fmt"
)

var (
	ErrAgentTimeout = errors.New("agent did not answer before the deadline")
	ErrInvalidMove  = errors.New("agent requested a 180 degree turn")
)

// PanicError wraps a value recovered from a panicking agent.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("agent panicked: %v", e.Value) }

// OutcomeKind classifies how an agent's decision went on one tick.
type OutcomeKind uint8

const (
	NotStarted OutcomeKind = iota
	ValidMove
	InvalidMove
	TimeOut
	ThrewException
)

var outcomeNames = [...]string{"not_started", "valid_move", "invalid_move", "timeout", "threw_exception"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
}

func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Outcome is the per-agent, per-tick result of decision collection.
// Move is only meaningful for ValidMove, Err only for ThrewException.
type Outcome struct {
	Kind OutcomeKind
	Move Direction
	Err  error
}

func Valid(d Direction) Outcome { return Outcome{Kind: ValidMove, Move: d} }
func Threw(err error) Outcome { return Outcome{Kind: ThrewException, Err: err} }
func TimedOut() Outcome { return Outcome{Kind: TimeOut, Err: ErrAgentTimeout} }
func Invalid(d Direction) Outcome { return Outcome{Kind: InvalidMove, Move: d, Err: ErrInvalidMove} }

// ValidMoveOr returns the requested move, or fallback for any other outcome.
func (o Outcome) ValidMoveOr(fallback Direction) Direction {
	if o.Kind == ValidMove {
		return o.Move
	}
	return fallback
}

func (o Outcome) String() string {
	switch o.Kind {
	case ValidMove:
		return "valid_move(" + o.Move.String() + ")"
	case ThrewException:
		return fmt.Sprintf("threw_exception(%v)", o.Err)
	default:
		return o.Kind.String()
	}
}
