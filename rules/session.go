// Package rules runs a match: it places the snakes, collects their moves
// each tick, applies them simultaneously and decides when the game is over.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brensch/snaykuu/game"
)

// State is the lifecycle of a Session.
type State uint8

const (
	NotStarted State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Player pairs a display name with the agent making its decisions.
type Player struct {
	Name  string
	Agent game.Agent
}

// Session owns the board and every snake body for one match. It is driven
// from a single goroutine; agents only ever see copies.
type Session struct {
	meta     game.Metadata
	board    *game.Board
	snakes   []*game.Snake
	agents   []game.Agent
	outcomes []game.Outcome
	turn     int
	state    State

	collector *Collector
	recorder  Recorder
	rng       *rand.Rand
	logger    *slog.Logger
	speed     time.Duration
	observer  func(*Session)
}

type Option func(*Session)

func WithRecorder(r Recorder) Option { return func(s *Session) { s.recorder = r } }
func WithRand(rng *rand.Rand) Option { return func(s *Session) { s.rng = rng } }
func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

// WithGameSpeed sets the minimum wall time of one tick in Run. Zero runs
// ticks back to back.
func WithGameSpeed(d time.Duration) Option { return func(s *Session) { s.speed = d } }

// WithObserver registers fn to run after Start and after every completed
// tick, before Run waits out the game speed.
func WithObserver(fn func(*Session)) Option { return func(s *Session) { s.observer = fn } }

// NewSession validates the metadata and roster and builds an empty board.
// Snake i gets id i and therefore agent bit i+2.
func NewSession(meta game.Metadata, players []Player, opts ...Option) (*Session, error) {
	if err := meta.Validate(); err != nil {
		return nil, configErr(err, "invalid metadata")
	}
	if len(players) == 0 {
		return nil, configErr(nil, "no players")
	}
	if len(players) > game.MaxAgents {
		return nil, configErr(nil, "%d players exceeds the maximum of %d", len(players), game.MaxAgents)
	}
	board, err := game.NewBoard(meta.BoardWidth, meta.BoardHeight)
	if err != nil {
		return nil, configErr(err, "board")
	}

	s := &Session{
		meta:     meta,
		board:    board,
		snakes:   make([]*game.Snake, len(players)),
		agents:   make([]game.Agent, len(players)),
		outcomes: make([]game.Outcome, len(players)),
		recorder: nopRecorder{},
	}
	for i, p := range players {
		if p.Agent == nil {
			return nil, configErr(nil, "player %d (%s) has no agent", i, p.Name)
		}
		s.snakes[i] = game.NewSnake(i, p.Name)
		s.agents[i] = p.Agent
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.speed > 0 && s.speed < meta.MaximumThinkingTime {
		return nil, configErr(nil, "game speed %v is shorter than the thinking time %v", s.speed, meta.MaximumThinkingTime)
	}
	s.collector = &Collector{Timeout: meta.MaximumThinkingTime, Logger: s.logger}
	return s, nil
}

func (s *Session) Metadata() game.Metadata { return s.meta }
func (s *Session) Turn() int { return s.turn }

// State reports the lifecycle state.
func (s *Session) State() State { return s.state }

// Outcomes returns each snake's outcome from the most recent tick, by id.
func (s *Session) Outcomes() []game.Outcome {
	return append([]game.Outcome(nil), s.outcomes...)
}

// CurrentState returns a deep copy of the board and snakes.
func (s *Session) CurrentState() *game.GameState {
	st := &game.GameState{
		Board:    s.board,
		Snakes:   s.snakes,
		Metadata: s.meta,
		Turn:     s.turn,
	}
	return st.Clone()
}

// Start places every snake and hands the starting board to the recorder.
func (s *Session) Start() error {
	if s.state != NotStarted {
		return ErrAlreadyStarted
	}
	slots, err := startingSlots(s.meta.BoardWidth, s.meta.BoardHeight, len(s.snakes), s.rng)
	if err != nil {
		return err
	}
	for i, sn := range s.snakes {
		if err := sn.InitAt(slots[i].Head, slots[i].Facing); err != nil {
			return configErr(err, "placing %v", sn)
		}
	}
	s.rebuildOccupancy()
	s.state = Playing
	s.recorder.Accept(s.board.Clone())
	s.logger.Debug("game started", "snakes", len(s.snakes), "width", s.meta.BoardWidth, "height", s.meta.BoardHeight)
	s.notify()
	return nil
}

// Tick advances the match by one turn. A cancelled ctx aborts the tick
// before anything on the board changes.
func (s *Session) Tick(ctx context.Context) error {
	switch s.state {
	case NotStarted:
		return ErrNotStarted
	case Finished:
		return ErrGameFinished
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	turn := s.turn + 1
	grow := isGrowthTurn(s.meta, turn)

	alive := make([]*game.Snake, 0, len(s.snakes))
	decisions := make([]Decision, 0, len(s.snakes))
	for _, sn := range s.snakes {
		if sn.IsDead() {
			continue
		}
		alive = append(alive, sn)
		decisions = append(decisions, Decision{Snake: sn, Agent: s.agents[sn.ID()], Previous: s.outcomes[sn.ID()]})
	}

	state := &game.GameState{Board: s.board, Snakes: s.snakes, Metadata: s.meta, Turn: turn}
	outcomes, err := s.collector.Collect(ctx, state, decisions)
	if err != nil {
		return fmt.Errorf("collecting decisions for turn %d: %w", turn, err)
	}
	s.turn = turn

	for i, sn := range alive {
		s.outcomes[sn.ID()] = outcomes[i]
		sn.MoveHead(outcomes[i].ValidMoveOr(sn.Direction()))
		if !grow {
			sn.RemoveTail()
		}
	}
	s.rebuildOccupancy()
	s.resolve(alive)

	if isFruitTurn(s.meta, turn) {
		if p, ok := spawnFruit(s.board, s.rng); ok {
			s.logger.Debug("fruit spawned", "turn", turn, "at", p.String())
		}
	}

	s.recorder.Accept(s.board.Clone())

	if s.hasEnded() {
		s.state = Finished
	}
	s.logger.Debug("tick",
		"turn", turn,
		"grow", grow,
		"alive", s.aliveCount(),
		"state", s.state.String(),
	)
	s.notify()
	return nil
}

func (s *Session) notify() {
	if s.observer != nil {
		s.observer(s)
	}
}

// resolve applies the consequences of the cell each moved head landed on.
// Occupancy has already been rebuilt from the post-move bodies.
func (s *Session) resolve(moved []*game.Snake) {
	for _, sn := range moved {
		head := sn.Head()
		cell, err := s.board.Get(head)
		switch {
		case err != nil, cell.HasMultipleAgents(), cell.HasWall(), sn.Occupies(head):
			sn.Kill()
			s.logger.Debug("snake died", "snake", sn.String(), "turn", s.turn, "at", head.String())
		case cell.HasFruit():
			sn.AddScore()
			sn.IncreaseLifespan()
			_ = s.board.Remove(head, game.CellFruit)
		default:
			sn.IncreaseLifespan()
		}
	}
}

// rebuildOccupancy recomputes every agent bit from the bodies, dead snakes
// included. Segments outside the board are skipped.
func (s *Session) rebuildOccupancy() {
	s.board.ClearAgents()
	for _, sn := range s.snakes {
		for _, p := range sn.Body() {
			if s.board.InBounds(p) {
				_ = s.board.Add(p, sn.Bit())
			}
		}
	}
}

func (s *Session) aliveCount() int {
	n := 0
	for _, sn := range s.snakes {
		if !sn.IsDead() {
			n++
		}
	}
	return n
}

func (s *Session) hasEnded() bool {
	for _, sn := range s.snakes {
		if sn.Score() >= s.meta.FruitGoal {
			return true
		}
	}
	alive := s.aliveCount()
	return alive == 0 || (alive == 1 && len(s.snakes) > 1)
}

// Run starts the session if needed and ticks until it finishes or ctx ends.
// With a game speed set, each tick takes at least that long.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.state == NotStarted {
		if err := s.Start(); err != nil {
			return nil, err
		}
	}
	for s.state == Playing {
		started := time.Now()
		if err := s.Tick(ctx); err != nil {
			return nil, err
		}
		if s.speed <= 0 || s.state == Finished {
			continue
		}
		wait := time.NewTimer(s.speed - time.Since(started))
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil, ctx.Err()
		case <-wait.C:
		}
	}
	res := s.Result()
	s.logger.Info("game finished",
		"turns", res.Turns,
		"winners", snakeNames(res.Winners),
	)
	return &res, nil
}

// Result is the final standing of a match.
type Result struct {
	Turns       int
	Snakes      []*game.Snake
	Leaderboard []game.Standing
	Winners     []*game.Snake
}

// Result ranks the snakes as they currently stand.
func (s *Session) Result() Result {
	snakes := make([]*game.Snake, len(s.snakes))
	for i, sn := range s.snakes {
		snakes[i] = sn.Clone()
	}
	board := game.Leaderboard(snakes)
	var winners []*game.Snake
	if len(board) > 0 {
		winners = board[0].Snakes
	}
	return Result{Turns: s.turn, Snakes: snakes, Leaderboard: board, Winners: winners}
}

func snakeNames(snakes []*game.Snake) []string {
	out := make([]string, len(snakes))
	for i, sn := range snakes {
		out[i] = sn.Name()
	}
	return out
}
