package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brensch/snaykuu/game"
)

func sampleState(t *testing.T, turn int) *game.GameState {
	t.Helper()
	board, err := game.NewBoard(6, 5)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	a := game.NewSnake(0, "alpha")
	_ = a.InitAt(game.Position{X: 1, Y: 1}, game.East)
	a.MoveHead(game.East)
	a.IncreaseLifespan()
	b := game.NewSnake(1, "beta")
	_ = b.InitAt(game.Position{X: 4, Y: 3}, game.West)
	b.Kill()
	for _, sn := range []*game.Snake{a, b} {
		for _, p := range sn.Body() {
			_ = board.Add(p, sn.Bit())
		}
	}
	_ = board.Add(game.Position{X: 3, Y: 2}, game.CellFruit)
	return &game.GameState{Board: board, Snakes: []*game.Snake{a, b}, Metadata: game.DefaultMetadata(), Turn: turn}
}

func TestTurnRow(t *testing.T) {
	st := sampleState(t, 4)
	row := TurnRow("g1", "test", st, []game.Outcome{game.Valid(game.East), game.TimedOut()})
	if row.Turn != 4 || row.Width != 6 || row.Height != 5 || len(row.Cells) != 30 {
		t.Fatalf("row header=%+v", row)
	}
	if len(row.FruitX) != 1 || row.FruitX[0] != 3 || row.FruitY[0] != 2 {
		t.Fatalf("fruit=%v,%v", row.FruitX, row.FruitY)
	}
	alpha, beta := row.Snakes[0], row.Snakes[1]
	if alpha.Name != "alpha" || !alpha.Alive || len(alpha.BodyX) != 2 || alpha.Outcome != "valid_move" || alpha.Direction != "east" {
		t.Fatalf("alpha=%+v", alpha)
	}
	if beta.Alive || beta.Outcome != "timeout" {
		t.Fatalf("beta=%+v", beta)
	}
	board, err := row.Board()
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if !board.Equal(st.Board) {
		t.Fatalf("board round trip mismatch")
	}

	MarkTerminal(&row, game.Leaderboard(st.Snakes))
	if !row.Terminal || row.Snakes[0].Rank != 1 || row.Snakes[1].Rank != 2 {
		t.Fatalf("terminal ranks=%d,%d", row.Snakes[0].Rank, row.Snakes[1].Rank)
	}
}

func TestArchiveParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := []ArchiveTurnRow{
		TurnRow("g1", "test", sampleState(t, 0), nil),
		TurnRow("g1", "test", sampleState(t, 1), nil),
	}
	path, err := WriteArchiveBatchParquetAtomic(dir, rows)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasSuffix(path, ".parquet") {
		t.Fatalf("path=%s", path)
	}
	got, err := ReadArchiveParquet(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1].Turn != 1 || got[0].Snakes[0].Name != "alpha" {
		t.Fatalf("rows=%+v", got)
	}
	if entries, _ := os.ReadDir(filepath.Join(dir, "tmp")); len(entries) != 0 {
		t.Fatalf("tmp dir not empty: %v", entries)
	}
}

func TestBatchWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := w.WriteGame([]ArchiveTurnRow{TurnRow(id, "test", sampleState(t, 0), nil)}); err != nil {
			t.Fatalf("WriteGame: %v", err)
		}
	}
	path, rows, games, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rows != 2 || games != 2 {
		t.Fatalf("rows=%d games=%d", rows, games)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("finalized file missing: %v", err)
	}
	if err := w.WriteGame(nil); err == nil {
		t.Fatalf("write after finalize accepted")
	}

	empty, _ := NewBatchWriter(dir)
	if path, _, _, err := empty.Finalize(); err != nil || path != "" {
		t.Fatalf("empty batch path=%q err=%v", path, err)
	}
}

func recordedGame(t *testing.T) *game.RecordedGame {
	t.Helper()
	meta := game.DefaultMetadata()
	meta.BoardWidth, meta.BoardHeight = 6, 5
	first := sampleState(t, 0).Board
	second := first.Clone()
	_ = second.Clear(game.Position{X: 3, Y: 2})
	return &game.RecordedGame{Metadata: meta, Snakes: []string{"alpha", "beta"}, Frames: []*game.Board{first, second}}
}

func TestReplayRoundTrip(t *testing.T) {
	g := recordedGame(t)
	var buf bytes.Buffer
	if err := EncodeReplay(&buf, g); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeReplay(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Metadata != g.Metadata {
		t.Fatalf("metadata=%+v want %+v", back.Metadata, g.Metadata)
	}
	if len(back.Frames) != 2 || !back.Frames[0].Equal(g.Frames[0]) || !back.Final().Equal(g.Final()) {
		t.Fatalf("frames differ")
	}
	if len(back.Snakes) != 2 || back.Snakes[1] != "beta" {
		t.Fatalf("snakes=%v", back.Snakes)
	}
}

func TestDecodeReplay_Truncated(t *testing.T) {
	in := `{"metadata":{"boardWidth":3,"boardHeight":3,"maximumThinkingTime":100,"growthFrequency":5,"fruitFrequency":10,"fruitGoal":5},"snakes":[],"frames":[2,2,2,2]}`
	if _, err := DecodeReplay(strings.NewReader(in)); err == nil {
		t.Fatalf("truncated frames accepted")
	}
}

func TestSaveReplay_NoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReplayName("g1", time.Unix(0, 0)))
	n, err := SaveReplay(path, recordedGame(t))
	if err != nil || n == 0 {
		t.Fatalf("save: n=%d err=%v", n, err)
	}
	if _, err := SaveReplay(path, recordedGame(t)); !errors.Is(err, ErrReplayExists) {
		t.Fatalf("second save err=%v want ErrReplayExists", err)
	}
	g, err := LoadReplay(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(g.Frames) != 2 {
		t.Fatalf("frames=%d", len(g.Frames))
	}
}

func TestReplayPlayback(t *testing.T) {
	r := NewReplay(recordedGame(t))
	if r.State() != ReplayNotStarted {
		t.Fatalf("state=%v", r.State())
	}
	if !r.Tick() || r.Turn() != 0 {
		t.Fatalf("first tick turn=%d", r.Turn())
	}
	if !r.Tick() || !r.Board().Equal(r.game.Frames[1]) {
		t.Fatalf("second frame mismatch")
	}
	if r.Tick() || r.State() != ReplayFinished {
		t.Fatalf("state after last frame=%v", r.State())
	}
	r.Tick()
	if r.Turn() != 2 {
		t.Fatalf("tick past the end moved to %d", r.Turn())
	}
	r.Rewind()
	if r.State() != ReplayNotStarted {
		t.Fatalf("rewind state=%v", r.State())
	}
}
