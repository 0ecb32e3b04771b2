// Package selfplay plays whole matches between agents and collects
// everything needed to archive and replay them.
package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snaykuu/game"
	"github.com/brensch/snaykuu/recorder"
	"github.com/brensch/snaykuu/rules"
	"github.com/brensch/snaykuu/store"
)

// Config describes one match.
type Config struct {
	Metadata game.Metadata
	Players  []rules.Player
	// Source is written to every archive row, e.g. "arena" or "debug".
	Source string
	// GameSpeed is the minimum wall time per tick; zero plays flat out.
	GameSpeed time.Duration
	// Seed drives placement and fruit. Zero picks one from the clock.
	Seed   int64
	Sinks  []recorder.Sink
	Logger *slog.Logger
	// OnTick is called after the start and after every tick with a copy of
	// the state.
	OnTick func(state *game.GameState, outcomes []game.Outcome)
}

// Outcome is what PlayGame hands back. When the match was interrupted
// Completed is false and Rows holds the turns played so far.
type Outcome struct {
	GameID    string
	Completed bool
	Rows      []store.ArchiveTurnRow
	Result    rules.Result
	Recorded  *game.RecordedGame
}

// PlayGame runs a match to completion. It returns an error when the match
// could not be set up or ctx ended before it finished; in the latter case
// the partial Outcome is still returned.
func PlayGame(ctx context.Context, cfg Config) (*Outcome, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	source := cfg.Source
	if source == "" {
		source = "selfplay"
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gameID := uuid.NewString()
	logger = logger.With("game", gameID)

	names := make([]string, len(cfg.Players))
	for i, p := range cfg.Players {
		names[i] = p.Name
	}
	rec := recorder.Start(gameID, cfg.Metadata, names,
		recorder.WithSinks(cfg.Sinks...),
		recorder.WithLogger(logger),
	)
	defer rec.Close()

	out := &Outcome{GameID: gameID, Rows: make([]store.ArchiveTurnRow, 0, 256)}
	observe := func(session *rules.Session) {
		state := session.CurrentState()
		outcomes := session.Outcomes()
		out.Rows = append(out.Rows, store.TurnRow(gameID, source, state, outcomes))
		if cfg.OnTick != nil {
			cfg.OnTick(state, outcomes)
		}
	}

	session, err := rules.NewSession(cfg.Metadata, cfg.Players,
		rules.WithRecorder(rec),
		rules.WithRand(rand.New(rand.NewSource(seed))),
		rules.WithLogger(logger),
		rules.WithGameSpeed(cfg.GameSpeed),
		rules.WithObserver(observe),
	)
	if err != nil {
		return nil, err
	}

	res, err := session.Run(ctx)
	if err != nil {
		if len(out.Rows) == 0 {
			return nil, err
		}
		out.Result = session.Result()
		out.Recorded = rec.Save()
		return out, fmt.Errorf("game %s turn %d: %w", gameID, session.Turn()+1, err)
	}

	out.Completed = true
	out.Result = *res
	out.Recorded = rec.Save()
	store.MarkTerminal(&out.Rows[len(out.Rows)-1], out.Result.Leaderboard)
	logger.Debug("game archived",
		"rows", len(out.Rows),
		"frames", len(out.Recorded.Frames),
		"winners", winnerNames(out.Result.Winners),
	)
	return out, nil
}

func winnerNames(snakes []*game.Snake) []string {
	out := make([]string, len(snakes))
	for i, sn := range snakes {
		out[i] = sn.Name()
	}
	return out
}
