package rules

import (
	"math"
	"math/rand"

	"github.com/brensch/snaykuu/game"
)

// startEdgeOffset keeps starting heads this many cells inside the circle
// that would touch the walls.
const startEdgeOffset = 2

type startSlot struct {
	Head   game.Position
	Facing game.Direction
}

// startingSlots spreads n heads evenly around an ellipse centred on the board,
// starting at a random angle, and shuffles the result. Every head faces
// towards the centre. It fails when two heads would share a cell or a head
// would land on a wall.
func startingSlots(width, height, n int, rng *rand.Rand) ([]startSlot, error) {
	if n <= 0 {
		return nil, nil
	}
	xCenter, yCenter := width/2, height/2
	xRadius := float64(max(xCenter-startEdgeOffset, 0))
	yRadius := float64(max(yCenter-startEdgeOffset, 0))

	step := 2 * math.Pi / float64(n)
	angle := rng.Float64() * 2 * math.Pi

	slots := make([]startSlot, 0, n)
	seen := make(map[game.Position]struct{}, n)
	for i := 0; i < n; i++ {
		x := roundHalfUp(xRadius * math.Cos(angle))
		y := roundHalfUp(yRadius * math.Sin(angle))
		angle += step

		head := game.Position{X: xCenter + x, Y: yCenter + y}
		if head.X <= 0 || head.Y <= 0 || head.X >= width-1 || head.Y >= height-1 {
			return nil, configErr(nil, "start position %v for %d snakes is outside the playable area of a %dx%d board", head, n, width, height)
		}
		if _, dup := seen[head]; dup {
			return nil, configErr(nil, "failed to generate unique start positions for %d snakes on a %dx%d board", n, width, height)
		}
		seen[head] = struct{}{}
		slots = append(slots, startSlot{Head: head, Facing: faceInwards(head, width, height)})
	}
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	return slots, nil
}

func roundHalfUp(v float64) int { return int(math.Floor(v + 0.5)) }

// faceInwards points a head at the board centre along the axis on which it
// is furthest from it.
func faceInwards(p game.Position, width, height int) game.Direction {
	dx, dy := p.X-width/2, p.Y-height/2
	if abs(dx) >= abs(dy) {
		if dx < 0 {
			return game.East
		}
		return game.West
	}
	if dy < 0 {
		return game.South
	}
	return game.North
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
