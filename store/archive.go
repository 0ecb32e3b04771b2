// Package store persists finished matches: a parquet archive with one row
// per (game, turn) for bulk analysis, and compact JSON replay files.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/snaykuu/game"
)

const archiveSchema = "archive_turn_v1"

// ArchiveTurnRow is the board and every snake after one tick of one game.
// Turn 0 is the starting board. The last row of a game has Terminal set.
type ArchiveTurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	ThinkingTimeMs  int64 `parquet:"thinking_time_ms"`
	GrowthFrequency int32 `parquet:"growth_frequency"`
	FruitFrequency  int32 `parquet:"fruit_frequency"`
	FruitGoal       int32 `parquet:"fruit_goal"`

	// Cells is the row-major cell bitmask sequence, bit patterns stored as int64.
	Cells []int64 `parquet:"cells"`

	FruitX []int32 `parquet:"fruit_x"`
	FruitY []int32 `parquet:"fruit_y"`

	Snakes []ArchiveSnake `parquet:"snakes"`

	Terminal bool   `parquet:"terminal"`
	Source   string `parquet:"source,dict"`
}

type ArchiveSnake struct {
	ID        int32  `parquet:"id"`
	Name      string `parquet:"name,dict"`
	Alive     bool   `parquet:"alive"`
	Score     int32  `parquet:"score"`
	Lifespan  int32  `parquet:"lifespan"`
	Direction string `parquet:"direction,dict"`
	// Outcome is how this snake's decision went on this turn.
	Outcome string `parquet:"outcome,dict"`
	// Rank is only set on the terminal row.
	Rank int32 `parquet:"rank"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`
}

// TurnRow builds the archive row for one state. Outcomes are indexed by snake
// id and may be nil.
func TurnRow(gameID, source string, state *game.GameState, outcomes []game.Outcome) ArchiveTurnRow {
	meta := state.Metadata
	row := ArchiveTurnRow{
		GameID:          gameID,
		Turn:            int32(state.Turn),
		Width:           int32(state.Board.Width()),
		Height:          int32(state.Board.Height()),
		ThinkingTimeMs:  meta.MaximumThinkingTime.Milliseconds(),
		GrowthFrequency: int32(meta.GrowthFrequency),
		FruitFrequency:  int32(meta.FruitFrequency),
		FruitGoal:       int32(meta.FruitGoal),
		Source:          source,
	}
	cells := state.Board.Cells()
	row.Cells = make([]int64, len(cells))
	for i, c := range cells {
		row.Cells[i] = int64(c)
	}
	for _, f := range state.Board.Fruits() {
		row.FruitX = append(row.FruitX, int32(f.X))
		row.FruitY = append(row.FruitY, int32(f.Y))
	}
	for _, sn := range state.Snakes {
		as := ArchiveSnake{
			ID:        int32(sn.ID()),
			Name:      sn.Name(),
			Alive:     !sn.IsDead(),
			Score:     int32(sn.Score()),
			Lifespan:  int32(sn.Lifespan()),
			Direction: sn.Direction().String(),
			Outcome:   game.NotStarted.String(),
		}
		if sn.ID() < len(outcomes) {
			as.Outcome = outcomes[sn.ID()].Kind.String()
		}
		for _, p := range sn.Body() {
			as.BodyX = append(as.BodyX, int32(p.X))
			as.BodyY = append(as.BodyY, int32(p.Y))
		}
		row.Snakes = append(row.Snakes, as)
	}
	return row
}

// MarkTerminal flags row as the last of its game and fills in the ranks.
func MarkTerminal(row *ArchiveTurnRow, standings []game.Standing) {
	row.Terminal = true
	rank := make(map[int]int32)
	for _, st := range standings {
		for _, sn := range st.Snakes {
			rank[sn.ID()] = int32(st.Rank)
		}
	}
	for i := range row.Snakes {
		row.Snakes[i].Rank = rank[int(row.Snakes[i].ID)]
	}
}

// Board rebuilds the board stored in a row.
func (r ArchiveTurnRow) Board() (*game.Board, error) {
	cells := make([]game.Cell, len(r.Cells))
	for i, c := range r.Cells {
		cells[i] = game.Cell(c)
	}
	return game.BoardFromCells(int(r.Width), int(r.Height), cells)
}

func WriteArchiveParquet(outPath string, rows []ArchiveTurnRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Write to a temp file and rename atomically.
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, archiveOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// WriteArchiveBatchParquetAtomic writes rows into outDir/tmp and then moves
// the finished file into outDir, so readers globbing outDir/*.parquet never
// see a partial file.
func WriteArchiveBatchParquetAtomic(outDir string, rows []ArchiveTurnRow) (string, error) {
	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	finalPath := filepath.Join(outDir, name)

	if err := parquet.WriteFile(tmpPath, rows, archiveOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func ReadArchiveParquet(path string) ([]ArchiveTurnRow, error) {
	rows, err := parquet.ReadFile[ArchiveTurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

func archiveOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("cells"),
		parquet.KeyValueMetadata("schema", archiveSchema),
	}
}
