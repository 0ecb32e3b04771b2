package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/snaykuu/game"
)

// ReplayExt is the extension of saved replay files.
const ReplayExt = ".sny"

var ErrReplayExists = errors.New("replay file already exists")

// replayFile is the on-disk form of a recorded game: every frame's cells
// concatenated into one sequence.
type replayFile struct {
	Metadata replayMetadata `json:"metadata"`
	Snakes   []string       `json:"snakes"`
	Frames   []uint64       `json:"frames"`
}

type replayMetadata struct {
	BoardWidth          int   `json:"boardWidth"`
	BoardHeight         int   `json:"boardHeight"`
	MaximumThinkingTime int64 `json:"maximumThinkingTime"`
	GrowthFrequency     int   `json:"growthFrequency"`
	FruitFrequency      int   `json:"fruitFrequency"`
	FruitGoal           int   `json:"fruitGoal"`
}

// ReplayName is a timestamped file name for a new replay.
func ReplayName(gameID string, at time.Time) string {
	return fmt.Sprintf("snaykuu_%s_%s%s", at.UTC().Format("20060102-150405"), gameID, ReplayExt)
}

// EncodeReplay writes g in the compact replay format.
func EncodeReplay(w io.Writer, g *game.RecordedGame) error {
	m := g.Metadata
	out := replayFile{
		Metadata: replayMetadata{
			BoardWidth:          m.BoardWidth,
			BoardHeight:         m.BoardHeight,
			MaximumThinkingTime: m.MaximumThinkingTime.Milliseconds(),
			GrowthFrequency:     m.GrowthFrequency,
			FruitFrequency:      m.FruitFrequency,
			FruitGoal:           m.FruitGoal,
		},
		Snakes: g.Snakes,
		Frames: make([]uint64, 0, len(g.Frames)*m.BoardSize()),
	}
	for i, f := range g.Frames {
		if f.Width() != m.BoardWidth || f.Height() != m.BoardHeight {
			return fmt.Errorf("frame %d is %dx%d, game is %dx%d", i, f.Width(), f.Height(), m.BoardWidth, m.BoardHeight)
		}
		for _, c := range f.Cells() {
			out.Frames = append(out.Frames, uint64(c))
		}
	}
	return json.NewEncoder(w).Encode(out)
}

// DecodeReplay reads a replay written by EncodeReplay.
func DecodeReplay(r io.Reader) (*game.RecordedGame, error) {
	var in replayFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	meta := game.Metadata{
		BoardWidth:          in.Metadata.BoardWidth,
		BoardHeight:         in.Metadata.BoardHeight,
		MaximumThinkingTime: time.Duration(in.Metadata.MaximumThinkingTime) * time.Millisecond,
		GrowthFrequency:     in.Metadata.GrowthFrequency,
		FruitFrequency:      in.Metadata.FruitFrequency,
		FruitGoal:           in.Metadata.FruitGoal,
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("replay metadata: %w", err)
	}
	size := meta.BoardSize()
	if len(in.Frames)%size != 0 {
		return nil, fmt.Errorf("replay holds %d cells, not a multiple of the %d cell board", len(in.Frames), size)
	}

	g := &game.RecordedGame{Metadata: meta, Snakes: in.Snakes}
	for start := 0; start < len(in.Frames); start += size {
		cells := make([]game.Cell, size)
		for i, c := range in.Frames[start : start+size] {
			cells[i] = game.Cell(c)
		}
		b, err := game.BoardFromCells(meta.BoardWidth, meta.BoardHeight, cells)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", start/size, err)
		}
		g.Frames = append(g.Frames, b)
	}
	return g, nil
}

// SaveReplay writes g to path. It never overwrites an existing file.
func SaveReplay(path string, g *game.RecordedGame) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create replay dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%s: %w", path, ErrReplayExists)
		}
		return 0, fmt.Errorf("create replay: %w", err)
	}
	if err := EncodeReplay(f, g); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return 0, err
	}
	info, statErr := f.Stat()
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close replay: %w", err)
	}
	if statErr != nil {
		return 0, nil
	}
	return info.Size(), nil
}

func LoadReplay(path string) (*game.RecordedGame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()
	return DecodeReplay(f)
}

// ReplayState is where playback stands.
type ReplayState uint8

const (
	ReplayNotStarted ReplayState = iota
	ReplayPlaying
	ReplayFinished
)

// Replay steps through a recorded game one frame at a time.
type Replay struct {
	game *game.RecordedGame
	turn int
}

func NewReplay(g *game.RecordedGame) *Replay { return &Replay{game: g, turn: -1} }

func (r *Replay) State() ReplayState {
	switch {
	case r.turn < 0:
		return ReplayNotStarted
	case r.turn < len(r.game.Frames):
		return ReplayPlaying
	}
	return ReplayFinished
}

// Tick advances one frame and reports whether a frame is showing.
func (r *Replay) Tick() bool {
	if r.State() != ReplayFinished {
		r.turn++
	}
	return r.State() == ReplayPlaying
}

// Board returns the current frame, clamped to the recorded range.
func (r *Replay) Board() *game.Board {
	if len(r.game.Frames) == 0 {
		return nil
	}
	return r.game.Frames[min(max(r.turn, 0), len(r.game.Frames)-1)]
}

func (r *Replay) Turn() int { return r.turn }
func (r *Replay) Rewind() { r.turn = -1 }
