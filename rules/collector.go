package rules

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/snaykuu/game"
)

// Decision is one live snake's request for a move this tick.
type Decision struct {
	Snake *game.Snake
	Agent game.Agent
	// Previous is the snake's own outcome from the last tick.
	Previous game.Outcome
}

// Collector asks every live agent for its move concurrently and classifies
// the answers under one shared deadline.
type Collector struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// slot holds one agent's answer. Once sealed, late answers are dropped.
type slot struct {
	mu      sync.Mutex
	done    bool
	sealed  bool
	outcome game.Outcome
}

func (s *slot) offer(o game.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.done = true
	s.outcome = o
}

func (s *slot) seal() game.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	if !s.done {
		s.outcome = game.TimedOut()
	}
	return s.outcome
}

// Collect returns one outcome per decision, in order. Every agent sees its
// own deep copy of state with PreviousTurn set to its previous outcome.
//
// Collect returns once every agent has answered or the timeout has passed,
// whichever is first. Agents still running at that point are classified
// TimeOut and their context is cancelled; whatever they return later is
// discarded. An error is only returned when ctx itself ends first.
func (c *Collector) Collect(ctx context.Context, state *game.GameState, decisions []Decision) ([]game.Outcome, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outcomes := make([]game.Outcome, len(decisions))
	if len(decisions) == 0 {
		return outcomes, nil
	}

	agentCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	slots := make([]*slot, len(decisions))
	allDone := make(chan struct{})
	var remaining atomic.Int32
	remaining.Store(int32(len(decisions)))

	for i, d := range decisions {
		slots[i] = &slot{}
		view := state.Clone()
		view.PreviousTurn = d.Previous
		self := view.Snake(d.Snake.ID())
		if self == nil {
			self = d.Snake.Clone()
		}

		go func(s *slot, agent game.Agent) {
			defer func() {
				if r := recover(); r != nil {
					s.offer(game.Threw(&game.PanicError{Value: r, Stack: debug.Stack()}))
				}
				if remaining.Add(-1) == 0 {
					close(allDone)
				}
			}()
			s.offer(classify(agent.NextMove(agentCtx, self, view)))
		}(slots[i], d.Agent)
	}

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()

	var err error
	select {
	case <-allDone:
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()

	for i, d := range decisions {
		o := slots[i].seal()
		if o.Kind == game.ValidMove && !d.Snake.Direction().IsValidTurn(o.Move) {
			o = game.Invalid(o.Move)
		}
		outcomes[i] = o
		switch o.Kind {
		case game.TimeOut:
			logger.Warn("agent timed out", "snake", d.Snake.String(), "timeout", c.Timeout)
		case game.ThrewException:
			logger.Warn("agent failed", "snake", d.Snake.String(), "error", o.Err)
		case game.InvalidMove:
			logger.Warn("agent made invalid move", "snake", d.Snake.String(), "facing", d.Snake.Direction(), "move", o.Move)
		}
	}
	return outcomes, err
}

func classify(d game.Direction, err error) game.Outcome {
	if err != nil {
		return game.Threw(err)
	}
	if int(d) >= len(game.Directions) {
		return game.Threw(fmt.Errorf("agent returned unknown direction %d", uint8(d)))
	}
	return game.Valid(d)
}
