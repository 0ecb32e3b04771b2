package game

import (
	"fmt"
	"strings"
)

// Direction is one of the four compass headings. The declaration order is
// significant: turning left is -1 and turning right is +1 modulo 4.
type Direction uint8

const (
	North Direction = iota
	West
	South
	East
)

// Directions lists every direction in declaration order.
var Directions = [4]Direction{North, West, South, East}

var directionNames = [4]string{"north", "west", "south", "east"}

var offsets = [4][2]int{
	North: {0, -1},
	West:  {-1, 0},
	South: {0, 1},
	East:  {1, 0},
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ParseDirection accepts a direction name in any case.
func ParseDirection(s string) (Direction, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Offset returns the (dx, dy) step for d.
func (d Direction) Offset() (int, int) {
	o := offsets[d%4]
	return o[0], o[1]
}

func (d Direction) TurnLeft() Direction { return (d + 3) % 4 }
func (d Direction) TurnRight() Direction { return (d + 1) % 4 }
func (d Direction) Opposite() Direction { return (d + 2) % 4 }

// IsValidTurn reports whether a snake heading d may move towards next.
// Only the 180 degree reversal is banned.
func (d Direction) IsValidTurn(next Direction) bool {
	return d == next || next != d.Opposite()
}

// RelativeDirections returns the zero, one or two directions that lead
// from one position towards another, horizontal first.
func RelativeDirections(from, to Position) []Direction {
	dirs := make([]Direction, 0, 2)
	switch {
	case from.X < to.X:
		dirs = append(dirs, East)
	case from.X > to.X:
		dirs = append(dirs, West)
	}
	switch {
	case from.Y < to.Y:
		dirs = append(dirs, South)
	case from.Y > to.Y:
		dirs = append(dirs, North)
	}
	return dirs
}

// MarshalText encodes d by name so JSON payloads read "north" rather than 0.
func (d Direction) MarshalText() ([]byte, error) {
	if int(d) >= len(directionNames) {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(directionNames[d]), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
