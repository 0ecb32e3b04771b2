// Package game defines the board model and the types shared between the
// turn engine and the agents competing in it.
//
// Everything handed to an agent is a private copy: agents may read or even
// scribble on their GameState without affecting the engine or each other.
package game

// GameState is the snapshot an agent receives for one decision.
type GameState struct {
	Board    *Board
	Snakes   []*Snake
	Metadata Metadata
	// PreviousTurn is the receiving agent's own outcome from the last tick.
	PreviousTurn Outcome
	Turn         int
}

// Snake returns the snake with the given id, or nil.
func (s *GameState) Snake(id int) *Snake {
	for _, sn := range s.Snakes {
		if sn.ID() == id {
			return sn
		}
	}
	return nil
}

// Alive returns the snakes that have not died.
func (s *GameState) Alive() []*Snake {
	out := make([]*Snake, 0, len(s.Snakes))
	for _, sn := range s.Snakes {
		if !sn.IsDead() {
			out = append(out, sn)
		}
	}
	return out
}

// WillCollide reports whether snake's next head cell in dir is lethal right
// now. False does not guarantee survival: two heads may meet in an empty cell.
func (s *GameState) WillCollide(snake *Snake, dir Direction) bool {
	return s.Board.IsLethal(snake.Head().Step(dir))
}

func (s *GameState) Fruits() []Position { return s.Board.Fruits() }
func (s *GameState) Walls() []Position { return s.Board.Walls() }

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := &GameState{
		Metadata:     s.Metadata,
		PreviousTurn: s.PreviousTurn,
		Turn:         s.Turn,
	}
	if s.Board != nil {
		out.Board = s.Board.Clone()
	}
	if len(s.Snakes) > 0 {
		out.Snakes = make([]*Snake, len(s.Snakes))
		for i, sn := range s.Snakes {
			out.Snakes[i] = sn.Clone()
		}
	}
	return out
}
