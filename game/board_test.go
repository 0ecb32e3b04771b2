package game

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// dumpBoard renders a board for test logs: # wall, * fruit, digits agents,
// X for a cell holding several agents.
func dumpBoard(b *Board) string {
	var sb strings.Builder
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			c := b.At(Position{X: x, Y: y})
			switch {
			case c.HasMultipleAgents():
				sb.WriteByte('X')
			case c.HasAgent():
				sb.WriteByte(byte('0' + c.Agents()[0]%10))
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
	return sb.String()
}

func genBoard(t *rapid.T) *Board {
	w := rapid.IntRange(MinBoardSize, 24).Draw(t, "width")
	h := rapid.IntRange(MinBoardSize, 24).Draw(t, "height")
	b, err := NewBoard(w, h)
	if err != nil {
		t.Fatalf("NewBoard(%d,%d): %v", w, h, err)
	}
	return b
}

func genPosition(t *rapid.T, b *Board) Position {
	return Position{
		X: rapid.IntRange(0, b.Width()-1).Draw(t, "x"),
		Y: rapid.IntRange(0, b.Height()-1).Draw(t, "y"),
	}
}

func TestNewBoard_WallsOnPerimeterOnly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := genBoard(t)
		for y := 0; y < b.Height(); y++ {
			for x := 0; x < b.Width(); x++ {
				edge := x == 0 || y == 0 || x == b.Width()-1 || y == b.Height()-1
				c := b.At(Position{X: x, Y: y})
				if c.HasWall() != edge {
					t.Fatalf("cell (%d,%d) wall=%v edge=%v\n%s", x, y, c.HasWall(), edge, dumpBoard(b))
				}
				if !edge && !c.IsEmpty() {
					t.Fatalf("interior cell (%d,%d)=%b want empty", x, y, c)
				}
			}
		}
	})
}

func TestNewBoard_TooSmall(t *testing.T) {
	for _, size := range [][2]int{{2, 5}, {5, 2}, {0, 0}} {
		if _, err := NewBoard(size[0], size[1]); !errors.Is(err, ErrBoardTooSmall) {
			t.Fatalf("NewBoard(%d,%d) err=%v want ErrBoardTooSmall", size[0], size[1], err)
		}
	}
}

func TestBoard_RemoveAbsentBitIsNoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := genBoard(t)
		p := genPosition(t, b)
		id := rapid.IntRange(0, MaxAgents-1).Draw(t, "id")
		before := b.At(p)
		if err := b.Remove(p, AgentBit(id)); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if err := b.Remove(p, CellFruit); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if after := b.At(p); after != before {
			t.Fatalf("cell %v changed %b -> %b", p, before, after)
		}
	})
}

func TestBoard_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := genBoard(t)
		n := rapid.IntRange(0, 20).Draw(t, "mutations")
		for i := 0; i < n; i++ {
			p := genPosition(t, b)
			obj := rapid.SampledFrom([]Cell{CellFruit, AgentBit(0), AgentBit(3), AgentBit(MaxAgents - 1)}).Draw(t, "obj")
			if err := b.Add(p, obj); err != nil {
				t.Fatalf("add: %v", err)
			}
		}
		back, err := BoardFromCells(b.Width(), b.Height(), b.Cells())
		if err != nil {
			t.Fatalf("BoardFromCells: %v", err)
		}
		if !back.Equal(b) {
			t.Fatalf("round trip mismatch\nwant:\n%sgot:\n%s", dumpBoard(b), dumpBoard(back))
		}
	})
}

func TestBoard_OutOfBounds(t *testing.T) {
	b, _ := NewBoard(5, 4)
	for _, p := range []Position{{X: -1, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 4}, {X: 2, Y: -3}} {
		if _, err := b.Get(p); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("Get(%v) err=%v want ErrOutOfBounds", p, err)
		}
		if err := b.Add(p, CellFruit); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("Add(%v) err=%v want ErrOutOfBounds", p, err)
		}
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("At out of bounds did not panic")
		}
	}()
	b.At(Position{X: 9, Y: 9})
}

func TestBoard_AddRemoveClear(t *testing.T) {
	b, _ := NewBoard(6, 6)
	p := Position{X: 2, Y: 3}
	_ = b.Add(p, CellFruit)
	_ = b.Add(p, AgentBit(1))
	c := b.At(p)
	if !c.HasFruit() || !c.HasAgentID(1) || c.HasMultipleAgents() {
		t.Fatalf("cell=%b", c)
	}
	if !c.IsLethal() {
		t.Fatalf("agent cell should be lethal")
	}
	_ = b.Add(p, AgentBit(4))
	if !b.At(p).HasMultipleAgents() {
		t.Fatalf("expected two agents in %b", b.At(p))
	}
	if got := b.At(p).Agents(); len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Fatalf("agents=%v want=[1 4]", got)
	}
	_ = b.Remove(p, AgentBit(1)|AgentBit(4))
	if c := b.At(p); c != CellFruit {
		t.Fatalf("cell=%b want fruit only", c)
	}
	_ = b.Clear(p)
	if !b.At(p).IsEmpty() {
		t.Fatalf("cell not cleared")
	}
	if len(b.Fruits()) != 0 {
		t.Fatalf("fruits=%v want none", b.Fruits())
	}
}

func TestCell_SameAgentTwiceIsOne(t *testing.T) {
	c := Cell(0).With(AgentBit(2)).With(AgentBit(2))
	if c.HasMultipleAgents() {
		t.Fatalf("same agent twice counted as multiple")
	}
	if Cell(CellFruit).IsLethal() {
		t.Fatalf("fruit is not lethal")
	}
	if !Cell(CellWall).IsLethal() {
		t.Fatalf("wall is lethal")
	}
}

func TestBoard_HasLethalWithinRange(t *testing.T) {
	b, _ := NewBoard(11, 11)
	centre := Position{X: 5, Y: 5}
	// Nearest wall is 5 hops from the centre.
	for rng, want := range map[int]bool{0: false, 1: false, 4: false, 5: true, 7: true} {
		if got := b.HasLethalWithinRange(centre, rng); got != want {
			t.Errorf("range %d: got %v want %v", rng, got, want)
		}
	}
	_ = b.Add(Position{X: 6, Y: 6}, AgentBit(0))
	if b.HasLethalWithinRange(centre, 1) {
		t.Errorf("diagonal agent must not count at range 1")
	}
	if !b.HasLethalWithinRange(centre, 2) {
		t.Errorf("diagonal agent is two hops away")
	}
	if !b.HasLethalWithinRange(Position{X: 6, Y: 6}, 0) {
		t.Errorf("range 0 inspects the cell itself")
	}
}

func TestBoard_AgentPositions(t *testing.T) {
	b, _ := NewBoard(7, 7)
	_ = b.Add(Position{X: 1, Y: 1}, AgentBit(0))
	_ = b.Add(Position{X: 2, Y: 1}, AgentBit(0))
	_ = b.Add(Position{X: 3, Y: 3}, AgentBit(5))
	got := b.AgentPositions()
	if len(got[0]) != 2 || len(got[5]) != 1 || len(got) != 2 {
		t.Fatalf("agent positions=%v", got)
	}
	b.ClearAgents()
	if len(b.AgentPositions()) != 0 {
		t.Fatalf("ClearAgents left agents:\n%s", dumpBoard(b))
	}
	if len(b.Walls()) != 24 {
		t.Fatalf("walls=%d want=24", len(b.Walls()))
	}
}
