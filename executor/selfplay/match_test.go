package selfplay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snaykuu/game"
	"github.com/brensch/snaykuu/recorder"
	"github.com/brensch/snaykuu/rules"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig() Config {
	return Config{
		Metadata: game.Metadata{
			BoardWidth:          9,
			BoardHeight:         9,
			MaximumThinkingTime: 20 * time.Millisecond,
			GrowthFrequency:     3,
			FruitFrequency:      4,
			FruitGoal:           50,
		},
		Players: []rules.Player{{Name: "left", Agent: game.Straight}, {Name: "right", Agent: game.Straight}},
		Source:  "test",
		Seed:    7,
		Logger:  quietLogger(),
	}
}

func TestPlayGame_StraightSnakesHitWalls(t *testing.T) {
	var frames atomic.Int32
	cfg := testConfig()
	cfg.Sinks = []recorder.Sink{recorder.SinkFunc(func(string, int, *game.Board) { frames.Add(1) })}
	var ticks int
	cfg.OnTick = func(state *game.GameState, _ []game.Outcome) {
		ticks++
		t.Logf("\n%s", RenderBoard(state))
	}

	out, err := PlayGame(context.Background(), cfg)
	if err != nil {
		t.Fatalf("PlayGame: %v", err)
	}
	if !out.Completed {
		t.Fatalf("game not completed")
	}
	if _, err := uuid.Parse(out.GameID); err != nil {
		t.Fatalf("game id %q: %v", out.GameID, err)
	}

	turns := out.Result.Turns
	if turns == 0 {
		t.Fatalf("game ended before any tick")
	}
	if len(out.Rows) != turns+1 || ticks != turns+1 {
		t.Fatalf("rows=%d ticks=%d want %d", len(out.Rows), ticks, turns+1)
	}
	if len(out.Recorded.Frames) != turns+1 || int(frames.Load()) != turns+1 {
		t.Fatalf("frames=%d sink=%d want %d", len(out.Recorded.Frames), frames.Load(), turns+1)
	}
	for i, row := range out.Rows {
		if int(row.Turn) != i || row.GameID != out.GameID || row.Source != "test" {
			t.Fatalf("row %d = turn %d game %q source %q", i, row.Turn, row.GameID, row.Source)
		}
		if row.Terminal != (i == len(out.Rows)-1) {
			t.Fatalf("row %d terminal=%v", i, row.Terminal)
		}
	}
	last := out.Rows[len(out.Rows)-1]
	for _, sn := range last.Snakes {
		if sn.Rank < 1 {
			t.Fatalf("snake %d has no rank", sn.ID)
		}
	}
	board, err := last.Board()
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if !board.Equal(out.Recorded.Final()) {
		t.Fatalf("terminal row and final frame differ")
	}
	if got := out.Recorded.Snakes; len(got) != 2 || got[0] != "left" || got[1] != "right" {
		t.Fatalf("recorded snakes=%v", got)
	}
}

func TestPlayGame_BadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Players = nil
	var ce *rules.ConfigurationError
	if _, err := PlayGame(context.Background(), cfg); !errors.As(err, &ce) {
		t.Fatalf("err=%v want configuration error", err)
	}
}

func TestPlayGame_GameSpeedBelowThinkingTime(t *testing.T) {
	cfg := testConfig()
	cfg.GameSpeed = time.Millisecond
	var ticks int
	cfg.OnTick = func(*game.GameState, []game.Outcome) { ticks++ }

	out, err := PlayGame(context.Background(), cfg)
	var ce *rules.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v want configuration error", err)
	}
	if out != nil || ticks != 0 {
		t.Fatalf("outcome=%+v ticks=%d, want nothing played", out, ticks)
	}
}

func TestPlayGame_GameSpeedPacesTicks(t *testing.T) {
	cfg := testConfig()
	cfg.GameSpeed = 25 * time.Millisecond
	started := time.Now()
	out, err := PlayGame(context.Background(), cfg)
	if err != nil {
		t.Fatalf("PlayGame: %v", err)
	}
	// Every tick but the last waits out the game speed.
	if floor := time.Duration(out.Result.Turns-1) * cfg.GameSpeed; time.Since(started) < floor {
		t.Fatalf("%d turns took %v, want at least %v", out.Result.Turns, time.Since(started), floor)
	}
}

func TestPlayGame_CancelledKeepsPartialRows(t *testing.T) {
	cfg := testConfig()
	cfg.Metadata.BoardWidth, cfg.Metadata.BoardHeight = 40, 40
	cfg.GameSpeed = 30 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out, err := PlayGame(ctx, cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
	if out == nil || out.Completed {
		t.Fatalf("outcome=%+v want partial", out)
	}
	if len(out.Rows) == 0 || len(out.Rows) != len(out.Recorded.Frames) {
		t.Fatalf("rows=%d frames=%d", len(out.Rows), len(out.Recorded.Frames))
	}
	if out.Rows[len(out.Rows)-1].Terminal {
		t.Fatalf("partial game marked terminal")
	}
}

func TestRenderBoard(t *testing.T) {
	board, _ := game.NewBoard(5, 4)
	sn := game.NewSnake(1, "bob")
	_ = sn.InitAt(game.Position{X: 1, Y: 1}, game.East)
	sn.MoveHead(game.East)
	for _, p := range sn.Body() {
		_ = board.Add(p, sn.Bit())
	}
	_ = board.Add(game.Position{X: 3, Y: 2}, game.CellFruit)
	state := &game.GameState{Board: board, Snakes: []*game.Snake{sn}, Turn: 3}

	got := RenderBoard(state)
	want := strings.Join([]string{
		"turn 3",
		"#####",
		"#bB.#",
		"#..*#",
		"#####",
	}, "\n")
	if !strings.HasPrefix(got, want) {
		t.Fatalf("got\n%s\nwant prefix\n%s", got, want)
	}
}
