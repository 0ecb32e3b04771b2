package rules

import (
	"math/rand"

	"github.com/brensch/snaykuu/game"
)

// spawnFruit places one fruit on a uniformly chosen empty cell. It reports
// false when the board has no empty cell left.
func spawnFruit(board *game.Board, rng *rand.Rand) (game.Position, bool) {
	empty := board.Empty()
	if len(empty) == 0 {
		return game.Position{}, false
	}
	p := empty[rng.Intn(len(empty))]
	// Empty came from the board itself, so p is in bounds.
	_ = board.Add(p, game.CellFruit)
	return p, true
}

func isGrowthTurn(meta game.Metadata, turn int) bool { return turn%meta.GrowthFrequency == 0 }
func isFruitTurn(meta game.Metadata, turn int) bool { return turn%meta.FruitFrequency == 0 }
