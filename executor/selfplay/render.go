package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/snaykuu/game"
)

// RenderBoard draws the board as text. Heads are upper case letters by
// snake id, bodies lower case, '#' is a wall, '*' fruit and 'X' a cell
// shared by more than one snake.
func RenderBoard(state *game.GameState) string {
	heads := make(map[game.Position]int)
	for _, sn := range state.Snakes {
		if sn.Placed() {
			heads[sn.Head()] = sn.ID()
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", state.Turn)
	board := state.Board
	for y := 0; y < board.Height(); y++ {
		for x := 0; x < board.Width(); x++ {
			p := game.Position{X: x, Y: y}
			c := board.At(p)
			switch {
			case c.HasMultipleAgents():
				sb.WriteByte('X')
			case c.HasAgent():
				id := c.Agents()[0]
				if h, ok := heads[p]; ok && h == id {
					sb.WriteByte(byte('A' + id))
				} else {
					sb.WriteByte(byte('a' + id))
				}
			case c.HasWall():
				sb.WriteByte('#')
			case c.HasFruit():
				sb.WriteByte('*')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	for _, sn := range state.Snakes {
		status := "alive"
		if sn.IsDead() {
			status = "dead"
		}
		fmt.Fprintf(&sb, "%c %-12s %-5s score=%d lifespan=%d len=%d\n",
			'A'+sn.ID(), sn.Name(), status, sn.Score(), sn.Lifespan(), sn.Len())
	}
	return sb.String()
}
