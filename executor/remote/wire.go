// Package remote lets a snake be played by a bot running behind HTTP.
// Agent is the client side used by the engine; Server exposes any
// game.Agent on the same protocol.
package remote

import (
	"fmt"
	"time"

	"github.com/brensch/snaykuu/game"
)

// MoveRequest is posted to a bot's /move endpoint once per tick.
type MoveRequest struct {
	GameID       string       `json:"game_id,omitempty"`
	Turn         int          `json:"turn"`
	You          int          `json:"you"`
	TimeoutMs    int64        `json:"timeout_ms"`
	Metadata     WireMetadata `json:"metadata"`
	Cells        []uint64     `json:"cells"`
	Snakes       []WireSnake  `json:"snakes"`
	PreviousTurn string       `json:"previous_turn"`
}

type WireMetadata struct {
	Width           int   `json:"width"`
	Height          int   `json:"height"`
	ThinkingTimeMs  int64 `json:"thinking_time_ms"`
	GrowthFrequency int   `json:"growth_frequency"`
	FruitFrequency  int   `json:"fruit_frequency"`
	FruitGoal       int   `json:"fruit_goal"`
}

type WireSnake struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Body      []game.Position `json:"body"`
	Direction game.Direction  `json:"direction"`
	Score     int             `json:"score"`
	Lifespan  int             `json:"lifespan"`
	Dead      bool            `json:"dead"`
}

type MoveResponse struct {
	Move game.Direction `json:"move"`
}

// InfoResponse is served at / so rosters can show who a bot is.
type InfoResponse struct {
	Name    string `json:"name"`
	Author  string `json:"author"`
	Version string `json:"version"`
}

// NewMoveRequest flattens a state for the wire.
func NewMoveRequest(gameID string, self *game.Snake, state *game.GameState, timeout time.Duration) MoveRequest {
	m := state.Metadata
	req := MoveRequest{
		GameID:    gameID,
		Turn:      state.Turn,
		You:       self.ID(),
		TimeoutMs: timeout.Milliseconds(),
		Metadata: WireMetadata{
			Width:           state.Board.Width(),
			Height:          state.Board.Height(),
			ThinkingTimeMs:  m.MaximumThinkingTime.Milliseconds(),
			GrowthFrequency: m.GrowthFrequency,
			FruitFrequency:  m.FruitFrequency,
			FruitGoal:       m.FruitGoal,
		},
		PreviousTurn: state.PreviousTurn.Kind.String(),
	}
	for _, c := range state.Board.Cells() {
		req.Cells = append(req.Cells, uint64(c))
	}
	for _, sn := range state.Snakes {
		req.Snakes = append(req.Snakes, WireSnake{
			ID:        sn.ID(),
			Name:      sn.Name(),
			Body:      sn.Body(),
			Direction: sn.Direction(),
			Score:     sn.Score(),
			Lifespan:  sn.Lifespan(),
			Dead:      sn.IsDead(),
		})
	}
	return req
}

// State rebuilds the game state and the requesting snake.
func (r MoveRequest) State() (*game.GameState, *game.Snake, error) {
	cells := make([]game.Cell, len(r.Cells))
	for i, c := range r.Cells {
		cells[i] = game.Cell(c)
	}
	board, err := game.BoardFromCells(r.Metadata.Width, r.Metadata.Height, cells)
	if err != nil {
		return nil, nil, fmt.Errorf("board: %w", err)
	}
	state := &game.GameState{
		Board: board,
		Metadata: game.Metadata{
			BoardWidth:          r.Metadata.Width,
			BoardHeight:         r.Metadata.Height,
			MaximumThinkingTime: time.Duration(r.Metadata.ThinkingTimeMs) * time.Millisecond,
			GrowthFrequency:     r.Metadata.GrowthFrequency,
			FruitFrequency:      r.Metadata.FruitFrequency,
			FruitGoal:           r.Metadata.FruitGoal,
		},
		Turn:         r.Turn,
		PreviousTurn: game.Outcome{Kind: parseOutcomeKind(r.PreviousTurn)},
	}
	for _, ws := range r.Snakes {
		sn, err := game.RestoreSnake(ws.ID, ws.Name, ws.Body, ws.Direction, ws.Score, ws.Lifespan, ws.Dead)
		if err != nil {
			return nil, nil, err
		}
		state.Snakes = append(state.Snakes, sn)
	}
	self := state.Snake(r.You)
	if self == nil || !self.Placed() {
		return nil, nil, fmt.Errorf("request has no placed snake with id %d", r.You)
	}
	return state, self, nil
}

func parseOutcomeKind(s string) game.OutcomeKind {
	for k := game.NotStarted; k <= game.ThrewException; k++ {
		if k.String() == s {
			return k
		}
	}
	return game.NotStarted
}
