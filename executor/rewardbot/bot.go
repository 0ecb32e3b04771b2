// Package rewardbot implements a time-boxed lookahead agent. It scores every
// cell of the board, walks candidate paths depth first from its head and
// takes the first step of the best path found before its deadline.
package rewardbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/snaykuu/game"
)

const (
	// MinDepth is the shallowest search the bot will settle for.
	MinDepth = 16
	// DefaultMargin is kept back from the thinking time so an answer always
	// arrives before the collector gives up.
	DefaultMargin = 15 * time.Millisecond
	// checkEvery is how many nodes are expanded between clock reads.
	checkEvery = 64
)

// Weights is the per-cell reward table. Rewards found deeper in a path count
// for less than the same reward one step away.
type Weights struct {
	Lethal        int
	Fruit         int
	FruitAdjacent int
	Open          int
	// Cramped is used instead of Open for open cells next to something lethal.
	Cramped int
	// HeadRisk marks cells an opponent's head can also reach next tick.
	HeadRisk int
}

var DefaultWeights = Weights{
	Lethal:        -1000,
	Fruit:         100,
	FruitAdjacent: 10,
	Open:          1,
	Cramped:       0,
	HeadRisk:      -50,
}

// Bot is a game.Agent. A Bot keeps no state between moves and may serve
// several snakes at once.
type Bot struct {
	Weights Weights
	Margin  time.Duration
	Logger  *slog.Logger
	// now is swapped in tests.
	now func() time.Time
}

func New(logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{Weights: DefaultWeights, Margin: DefaultMargin, Logger: logger, now: time.Now}
}

// MaxDepth grows with the snake: a longer body leaves less room, so the bot
// has to look further ahead to avoid trapping itself.
func MaxDepth(length int) int {
	return max(MinDepth, 4+2*length)
}

// NextMove never returns an error. When nothing safe exists, or the search
// itself fails, it turns left.
func (b *Bot) NextMove(ctx context.Context, self *game.Snake, state *game.GameState) (dir game.Direction, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger().Error("reward bot failed", "snake", self.String(), "panic", r)
			dir, err = self.Direction().TurnLeft(), nil
		}
	}()

	now := b.clock()()
	deadline := now.Add(state.Metadata.MaximumThinkingTime)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	deadline = deadline.Add(-b.Margin)

	s := &search{
		ctx:      ctx,
		now:      b.clock(),
		board:    state.Board,
		surface:  Surface(state, self, b.Weights),
		lethal:   b.Weights.Lethal,
		maxDepth: MaxDepth(self.Len()),
		visited:  make([]bool, state.Board.Width()*state.Board.Height()),
	}
	head := self.Head()
	s.visited[s.index(head)] = true

	facing := self.Direction()
	candidates := [3]game.Direction{facing, facing.TurnLeft(), facing.TurnRight()}
	best, bestScore, safe := facing.TurnLeft(), 0, false
	for k, d := range candidates {
		// Each root branch gets an equal share of whatever time is left.
		remaining := deadline.Sub(s.now())
		s.deadline = s.now().Add(remaining / time.Duration(len(candidates)-k))
		s.expired = false

		score, ok := s.explore(head, d, 0)
		if !ok || s.isLethal(head.Step(d)) {
			continue
		}
		if !safe || score > bestScore {
			best, bestScore, safe = d, score, true
		}
	}

	if !safe {
		b.logger().Debug("reward bot has no safe move", "snake", self.String(), "turn", state.Turn)
		return facing.TurnLeft(), nil
	}
	b.logger().Debug("reward bot move",
		"snake", self.String(),
		"turn", state.Turn,
		"move", best.String(),
		"score", bestScore,
		"nodes", s.nodes,
		"depth", s.maxDepth,
		"elapsed", s.now().Sub(now),
	)
	return best, nil
}

func (b *Bot) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

func (b *Bot) clock() func() time.Time {
	if b.now == nil {
		return time.Now
	}
	return b.now
}

// Surface scores every cell of the board for self, row-major.
func Surface(state *game.GameState, self *game.Snake, w Weights) []int {
	board := state.Board
	surface := make([]int, board.Width()*board.Height())

	risky := make(map[game.Position]bool)
	for _, sn := range state.Snakes {
		if sn.ID() == self.ID() || sn.IsDead() || !sn.Placed() {
			continue
		}
		for _, p := range sn.Head().Neighbours() {
			risky[p] = true
		}
	}

	for i := range surface {
		p := board.Position(i)
		c := board.At(p)
		switch {
		case c.IsLethal():
			surface[i] = w.Lethal
		case c.HasFruit():
			surface[i] = w.Fruit
		case risky[p]:
			surface[i] = w.HeadRisk
		case nextToFruit(board, p):
			surface[i] = w.FruitAdjacent
		case board.HasLethalWithinRange(p, 1):
			surface[i] = w.Cramped
		default:
			surface[i] = w.Open
		}
	}
	return surface
}

func nextToFruit(board *game.Board, p game.Position) bool {
	for _, n := range p.Neighbours() {
		if board.HasFruit(n) {
			return true
		}
	}
	return false
}

type search struct {
	ctx      context.Context
	now      func() time.Time
	board    *game.Board
	surface  []int
	lethal   int
	maxDepth int
	visited  []bool
	deadline time.Time
	expired  bool
	nodes    int
}

func (s *search) index(p game.Position) int { return p.Y*s.board.Width() + p.X }

func (s *search) isLethal(p game.Position) bool {
	return !s.board.InBounds(p) || s.surface[s.index(p)] <= s.lethal
}

func (s *search) outOfTime() bool {
	if s.expired {
		return true
	}
	s.nodes++
	if s.nodes%checkEvery == 0 && (!s.now().Before(s.deadline) || s.ctx.Err() != nil) {
		s.expired = true
	}
	return s.expired
}

// explore scores the best path that starts by stepping from at towards dir.
// It reports false when that step would revisit a cell already on the path.
// A lethal step ends the path after adding its penalty.
func (s *search) explore(at game.Position, dir game.Direction, depth int) (int, bool) {
	if depth >= s.maxDepth || s.outOfTime() {
		return 0, true
	}
	next := at.Step(dir)
	if !s.board.InBounds(next) {
		return s.lethal * (s.maxDepth - depth), true
	}
	i := s.index(next)
	if s.visited[i] {
		return 0, false
	}
	gain := s.surface[i] * (s.maxDepth - depth)
	if s.surface[i] <= s.lethal {
		return gain, true
	}

	s.visited[i] = true
	best, found := 0, false
	for _, d := range [4]game.Direction{dir, dir.TurnLeft(), dir.TurnRight(), dir.Opposite()} {
		v, ok := s.explore(next, d, depth+1)
		if ok && (!found || v > best) {
			best, found = v, true
		}
	}
	s.visited[i] = false
	return gain + best, true
}
