package game

import "math/bits"

// Cell is the packed occupancy of one board square.
//
// Bit 0 is fruit, bit 1 is wall and bit i+2 is set while the snake with id i
// occupies the square.
type Cell uint64

const (
	CellFruit Cell = 1 << 0
	CellWall  Cell = 1 << 1

	agentShift = 2
)

// MaxAgents is the number of snake ids that fit in a Cell.
const MaxAgents = 64 - agentShift

// AgentBit returns the occupancy bit for the snake with the given id.
func AgentBit(id int) Cell {
	if id < 0 || id >= MaxAgents {
		panic("game: agent id out of range")
	}
	return 1 << (uint(id) + agentShift)
}

func (c Cell) IsEmpty() bool { return c == 0 }
func (c Cell) HasFruit() bool { return c&CellFruit != 0 }
func (c Cell) HasWall() bool { return c&CellWall != 0 }
func (c Cell) HasAgent() bool { return c>>agentShift != 0 }

// IsLethal reports whether anything above the fruit bit is set.
func (c Cell) IsLethal() bool { return c>>1 != 0 }

// HasMultipleAgents is only true on the tick two snakes collide in c.
func (c Cell) HasMultipleAgents() bool {
	return bits.OnesCount64(uint64(c>>agentShift)) > 1
}

// HasAgentID reports whether the snake with the given id occupies c.
func (c Cell) HasAgentID(id int) bool { return c&AgentBit(id) != 0 }

// Agents returns the ids of every snake present, ascending.
func (c Cell) Agents() []int {
	rest := uint64(c >> agentShift)
	ids := make([]int, 0, bits.OnesCount64(rest))
	for rest != 0 {
		i := bits.TrailingZeros64(rest)
		ids = append(ids, i)
		rest &^= 1 << uint(i)
	}
	return ids
}

func (c Cell) With(obj Cell) Cell { return c | obj }
func (c Cell) Without(obj Cell) Cell { return c &^ obj }
