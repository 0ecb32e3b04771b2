package game

import (
	"errors"
	"fmt"
)

var ErrAlreadyPlaced = errors.New("snake already placed on the board")

// Snake is one competitor. Body[0] is the head.
//
// A dead snake keeps its body on the board as an obstacle but no longer moves.
type Snake struct {
	id        int
	name      string
	body      []Position
	direction Direction
	score     int
	lifespan  int
	dead      bool
}

// NewSnake creates an unplaced snake. The id selects its occupancy bit.
func NewSnake(id int, name string) *Snake {
	AgentBit(id) // validates the id range
	return &Snake{id: id, name: name}
}

func (s *Snake) ID() int { return s.id }
func (s *Snake) Name() string { return s.name }
func (s *Snake) Bit() Cell { return AgentBit(s.id) }
func (s *Snake) Direction() Direction { return s.direction }
func (s *Snake) Score() int { return s.score }
func (s *Snake) Lifespan() int { return s.lifespan }
func (s *Snake) IsDead() bool { return s.dead }
func (s *Snake) Len() int { return len(s.body) }
func (s *Snake) Placed() bool { return len(s.body) > 0 }
func (s *Snake) Body() []Position { return append([]Position(nil), s.body...) }
func (s *Snake) String() string { return fmt.Sprintf("%s#%d", s.name, s.id) }

// Head panics if the snake has not been placed yet.
func (s *Snake) Head() Position {
	if len(s.body) == 0 {
		panic(fmt.Sprintf("game: %v has no head before InitAt", s))
	}
	return s.body[0]
}

// Tail panics if the snake has not been placed yet.
func (s *Snake) Tail() Position {
	if len(s.body) == 0 {
		panic(fmt.Sprintf("game: %v has no tail before InitAt", s))
	}
	return s.body[len(s.body)-1]
}

// InitAt places the snake as a single segment facing the given direction.
// It may only be called once.
func (s *Snake) InitAt(head Position, facing Direction) error {
	if len(s.body) > 0 {
		return fmt.Errorf("%v: %w", s, ErrAlreadyPlaced)
	}
	s.body = []Position{head}
	s.direction = facing
	return nil
}

// MoveHead pushes a new head one step in d and records d as the facing.
func (s *Snake) MoveHead(d Direction) Position {
	next := s.Head().Step(d)
	body := make([]Position, 0, len(s.body)+1)
	body = append(body, next)
	s.body = append(body, s.body...)
	s.direction = d
	return next
}

// RemoveTail pops the last segment, never the head.
func (s *Snake) RemoveTail() {
	if len(s.body) > 1 {
		s.body = s.body[:len(s.body)-1]
	}
}

// Occupies reports whether any body segment other than the head is at p.
func (s *Snake) Occupies(p Position) bool {
	for _, b := range s.body[min(1, len(s.body)):] {
		if b == p {
			return true
		}
	}
	return false
}

func (s *Snake) Kill() { s.dead = true }
func (s *Snake) AddScore() { s.score++ }
func (s *Snake) IncreaseLifespan() { s.lifespan++ }

// Clone returns a deep copy, used to hand agents a private view.
func (s *Snake) Clone() *Snake {
	c := *s
	c.body = s.Body()
	return &c
}

// SnakeStats builds a detached snake carrying only final statistics. It is
// used to rebuild results from recorded games.
func SnakeStats(id int, name string, score, lifespan int, dead bool) *Snake {
	s := NewSnake(id, name)
	s.score = score
	s.lifespan = lifespan
	s.dead = dead
	return s
}

// RestoreSnake rebuilds a snake received over the wire. Consecutive body
// segments must be orthogonally adjacent.
func RestoreSnake(id int, name string, body []Position, facing Direction, score, lifespan int, dead bool) (*Snake, error) {
	if id < 0 || id >= MaxAgents {
		return nil, fmt.Errorf("snake id %d out of range [0,%d)", id, MaxAgents)
	}
	for i := 1; i < len(body); i++ {
		if body[i].DistanceTo(body[i-1]) != 1 {
			return nil, fmt.Errorf("snake %d: segments %v and %v are not adjacent", id, body[i-1], body[i])
		}
	}
	s := SnakeStats(id, name, score, lifespan, dead)
	s.body = append([]Position(nil), body...)
	s.direction = facing
	return s, nil
}
