package game

import "fmt"

// Position is a board coordinate. (0,0) is the top-left corner and y grows
// towards the south.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Step returns the position one cell away in direction d.
func (p Position) Step(d Direction) Position {
	dx, dy := d.Offset()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DistanceTo is the Manhattan distance between p and other.
func (p Position) DistanceTo(other Position) int {
	return abs(p.X-other.X) + abs(p.Y-other.Y)
}

// Neighbours returns the up to four orthogonal neighbours of p with
// non-negative coordinates, in Direction order.
func (p Position) Neighbours() []Position {
	out := make([]Position, 0, 4)
	for _, d := range Directions {
		n := p.Step(d)
		if n.X >= 0 && n.Y >= 0 {
			out = append(out, n)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
