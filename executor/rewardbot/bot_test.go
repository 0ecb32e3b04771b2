package rewardbot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/brensch/snaykuu/game"
)

func testBot() *Bot {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func stateWith(t testing.TB, w, h int, thinking time.Duration, snakes ...*game.Snake) *game.GameState {
	t.Helper()
	board, err := game.NewBoard(w, h)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	for _, sn := range snakes {
		for _, p := range sn.Body() {
			_ = board.Add(p, sn.Bit())
		}
	}
	meta := game.DefaultMetadata()
	meta.BoardWidth, meta.BoardHeight = w, h
	meta.MaximumThinkingTime = thinking
	return &game.GameState{Board: board, Snakes: snakes, Metadata: meta}
}

func snakeAt(t testing.TB, id int, facing game.Direction, body ...game.Position) *game.Snake {
	t.Helper()
	sn := game.NewSnake(id, "bot")
	// Body is given head first; grow it from the tail.
	tail := body[len(body)-1]
	if err := sn.InitAt(tail, facing); err != nil {
		t.Fatalf("InitAt: %v", err)
	}
	for i := len(body) - 2; i >= 0; i-- {
		dirs := game.RelativeDirections(body[i+1], body[i])
		if len(dirs) != 1 {
			t.Fatalf("body segments %v and %v are not adjacent", body[i+1], body[i])
		}
		sn.MoveHead(dirs[0])
	}
	return sn
}

func TestNextMove_FruitDirectlyNorth(t *testing.T) {
	for _, facing := range []game.Direction{game.North, game.East, game.West} {
		t.Run(facing.String(), func(t *testing.T) {
			head := game.Position{X: 5, Y: 5}
			self := snakeAt(t, 0, facing, head)
			state := stateWith(t, 11, 11, 100*time.Millisecond, self)
			_ = state.Board.Add(head.Step(game.North), game.CellFruit)

			got, err := testBot().NextMove(context.Background(), self, state)
			if err != nil {
				t.Fatalf("NextMove: %v", err)
			}
			if got != game.North {
				t.Fatalf("move=%v want north", got)
			}
		})
	}
}

func TestNextMove_AvoidsWall(t *testing.T) {
	self := snakeAt(t, 0, game.West, game.Position{X: 1, Y: 3})
	state := stateWith(t, 7, 7, 60*time.Millisecond, self)
	got, _ := testBot().NextMove(context.Background(), self, state)
	if got == game.West || got == game.East {
		t.Fatalf("move=%v, want to turn away from the wall", got)
	}
}

func TestNextMove_AvoidsOpponentBody(t *testing.T) {
	self := snakeAt(t, 0, game.East, game.Position{X: 3, Y: 3}, game.Position{X: 2, Y: 3})
	other := snakeAt(t, 1, game.South,
		game.Position{X: 4, Y: 5}, game.Position{X: 4, Y: 4}, game.Position{X: 4, Y: 3}, game.Position{X: 4, Y: 2})
	other.Kill()
	state := stateWith(t, 9, 9, 60*time.Millisecond, self, other)
	got, _ := testBot().NextMove(context.Background(), self, state)
	if got == game.East {
		t.Fatalf("moved into a body:\nself=%v other=%v", self.Body(), other.Body())
	}
}

func TestNextMove_NoSafeMoveTurnsLeft(t *testing.T) {
	// North and west are walls, east is another snake.
	self := snakeAt(t, 0, game.North, game.Position{X: 1, Y: 1}, game.Position{X: 1, Y: 2})
	other := snakeAt(t, 1, game.South, game.Position{X: 2, Y: 1})
	state := stateWith(t, 7, 7, 40*time.Millisecond, self, other)
	got, err := testBot().NextMove(context.Background(), self, state)
	if err != nil {
		t.Fatalf("NextMove: %v", err)
	}
	if want := game.North.TurnLeft(); got != want {
		t.Fatalf("move=%v want %v", got, want)
	}
}

func TestNextMove_PanicFallsBackToLeft(t *testing.T) {
	unplaced := game.NewSnake(0, "ghost")
	state := stateWith(t, 7, 7, 40*time.Millisecond)
	got, err := testBot().NextMove(context.Background(), unplaced, state)
	if err != nil {
		t.Fatalf("NextMove returned error %v", err)
	}
	if got != unplaced.Direction().TurnLeft() {
		t.Fatalf("move=%v want turn left", got)
	}
}

func TestNextMove_AnswersBeforeDeadline(t *testing.T) {
	thinking := 60 * time.Millisecond
	body := []game.Position{}
	for x := 10; x >= 3; x-- {
		body = append(body, game.Position{X: x, Y: 10})
	}
	self := snakeAt(t, 0, game.East, body...)
	state := stateWith(t, 30, 30, thinking, self)

	started := time.Now()
	if _, err := testBot().NextMove(context.Background(), self, state); err != nil {
		t.Fatalf("NextMove: %v", err)
	}
	if elapsed := time.Since(started); elapsed >= thinking {
		t.Fatalf("bot took %v with a %v budget", elapsed, thinking)
	}
}

func TestNextMove_HonoursContextDeadline(t *testing.T) {
	self := snakeAt(t, 0, game.East, game.Position{X: 10, Y: 10})
	state := stateWith(t, 30, 30, time.Second, self)
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, _ = testBot().NextMove(ctx, self, state)
	if elapsed := time.Since(started); elapsed > 100*time.Millisecond {
		t.Fatalf("bot ignored the context deadline, took %v", elapsed)
	}
}

func TestNextMove_NeverReverses(t *testing.T) {
	bot := testBot()
	bot.Margin = 0
	rapid.Check(t, func(rt *rapid.T) {
		facing := rapid.SampledFrom(game.Directions[:]).Draw(rt, "facing")
		x := rapid.IntRange(1, 7).Draw(rt, "x")
		y := rapid.IntRange(1, 7).Draw(rt, "y")
		self := snakeAt(t, 0, facing, game.Position{X: x, Y: y})
		state := stateWith(t, 9, 9, 3*time.Millisecond, self)
		got, err := bot.NextMove(context.Background(), self, state)
		if err != nil {
			rt.Fatalf("NextMove: %v", err)
		}
		if !facing.IsValidTurn(got) {
			rt.Fatalf("facing %v chose reversal %v", facing, got)
		}
	})
}

func TestMaxDepth(t *testing.T) {
	cases := map[int]int{0: 16, 1: 16, 6: 16, 7: 18, 10: 24}
	for length, want := range cases {
		if got := MaxDepth(length); got != want {
			t.Errorf("MaxDepth(%d)=%d want=%d", length, got, want)
		}
	}
}

func TestSurface(t *testing.T) {
	self := snakeAt(t, 0, game.North, game.Position{X: 2, Y: 2})
	other := snakeAt(t, 1, game.North, game.Position{X: 6, Y: 6})
	state := stateWith(t, 9, 9, 40*time.Millisecond, self, other)
	fruit := game.Position{X: 4, Y: 2}
	_ = state.Board.Add(fruit, game.CellFruit)

	w := DefaultWeights
	surface := Surface(state, self, w)
	at := func(x, y int) int { return surface[y*9+x] }

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"wall", at(0, 0), w.Lethal},
		{"own head", at(2, 2), w.Lethal},
		{"fruit", at(4, 2), w.Fruit},
		{"next to fruit", at(4, 3), w.FruitAdjacent},
		{"next to opponent head", at(6, 5), w.HeadRisk},
		{"next to wall", at(1, 4), w.Cramped},
		{"open", at(4, 5), w.Open},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %d want %d", c.name, c.got, c.want)
		}
	}
}
