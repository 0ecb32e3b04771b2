package game

import (
	"errors"
	"fmt"
)

// MinBoardSize is the smallest width or height, walls included.
const MinBoardSize = 3

var (
	ErrOutOfBounds   = errors.New("position out of bounds")
	ErrBoardTooSmall = fmt.Errorf("board must be at least %dx%d including walls", MinBoardSize, MinBoardSize)
)

// Board is a width×height grid of cells stored row-major. The perimeter holds
// walls from construction onwards.
//
// A Board is not safe for concurrent mutation. The engine owns its board and
// only mutates it between ticks; agents always receive a Clone.
type Board struct {
	width  int
	height int
	cells  []Cell
}

// NewBoard creates an empty board with walls on every edge cell.
func NewBoard(width, height int) (*Board, error) {
	if width < MinBoardSize || height < MinBoardSize {
		return nil, fmt.Errorf("%w: got %dx%d", ErrBoardTooSmall, width, height)
	}
	b := &Board{width: width, height: height, cells: make([]Cell, width*height)}
	for x := 0; x < width; x++ {
		b.cells[x] = CellWall
		b.cells[(height-1)*width+x] = CellWall
	}
	for y := 0; y < height; y++ {
		b.cells[y*width] = CellWall
		b.cells[y*width+width-1] = CellWall
	}
	return b, nil
}

// BoardFromCells rebuilds a board from its flat row-major cell sequence, as
// produced by Cells. Walls are taken from the data as-is.
func BoardFromCells(width, height int, cells []Cell) (*Board, error) {
	if width < MinBoardSize || height < MinBoardSize {
		return nil, fmt.Errorf("%w: got %dx%d", ErrBoardTooSmall, width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("board %dx%d needs %d cells, got %d", width, height, width*height, len(cells))
	}
	return &Board{width: width, height: height, cells: append([]Cell(nil), cells...)}, nil
}

func (b *Board) Width() int { return b.width }
func (b *Board) Height() int { return b.height }

func (b *Board) InBounds(p Position) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

func (b *Board) index(p Position) int { return p.Y*b.width + p.X }

// Get returns the cell at p, or ErrOutOfBounds.
func (b *Board) Get(p Position) (Cell, error) {
	if !b.InBounds(p) {
		return 0, fmt.Errorf("%w: %v on %dx%d board", ErrOutOfBounds, p, b.width, b.height)
	}
	return b.cells[b.index(p)], nil
}

// At is Get for callers that have already bounds-checked p. It panics on
// out-of-bounds access.
func (b *Board) At(p Position) Cell {
	c, err := b.Get(p)
	if err != nil {
		panic(err)
	}
	return c
}

// Add sets obj's bits on the cell at p.
func (b *Board) Add(p Position, obj Cell) error {
	return b.update(p, func(c Cell) Cell { return c.With(obj) })
}

// Remove clears obj's bits on the cell at p. Removing an absent bit is a no-op.
func (b *Board) Remove(p Position, obj Cell) error {
	return b.update(p, func(c Cell) Cell { return c.Without(obj) })
}

// Clear empties the cell at p entirely.
func (b *Board) Clear(p Position) error {
	return b.update(p, func(Cell) Cell { return 0 })
}

func (b *Board) update(p Position, fn func(Cell) Cell) error {
	if !b.InBounds(p) {
		return fmt.Errorf("%w: %v on %dx%d board", ErrOutOfBounds, p, b.width, b.height)
	}
	i := b.index(p)
	b.cells[i] = fn(b.cells[i])
	return nil
}

func (b *Board) HasFruit(p Position) bool { return b.InBounds(p) && b.At(p).HasFruit() }
func (b *Board) HasWall(p Position) bool { return b.InBounds(p) && b.At(p).HasWall() }
func (b *Board) HasAgent(p Position) bool { return b.InBounds(p) && b.At(p).HasAgent() }

// IsLethal treats positions off the board as lethal.
func (b *Board) IsLethal(p Position) bool { return !b.InBounds(p) || b.At(p).IsLethal() }

// HasLethalWithinRange reports whether any cell reachable from p in at most
// rng orthogonal hops is lethal. A negative range visits nothing.
func (b *Board) HasLethalWithinRange(p Position, rng int) bool {
	if rng < 0 || !b.InBounds(p) {
		return false
	}
	// best remaining budget seen per cell, so a shorter route can revisit.
	seen := make(map[Position]int, (2*rng+1)*(2*rng+1))
	var visit func(at Position, left int) bool
	visit = func(at Position, left int) bool {
		if prev, ok := seen[at]; ok && prev >= left {
			return false
		}
		seen[at] = left
		if b.At(at).IsLethal() {
			return true
		}
		if left == 0 {
			return false
		}
		for _, n := range at.Neighbours() {
			if b.InBounds(n) && visit(n, left-1) {
				return true
			}
		}
		return false
	}
	return visit(p, rng)
}

// ClearAgents strips every agent bit, keeping walls and fruit.
func (b *Board) ClearAgents() {
	for i, c := range b.cells {
		b.cells[i] = c & (CellWall | CellFruit)
	}
}

// Cells returns a copy of the flat row-major cell sequence.
func (b *Board) Cells() []Cell {
	return append([]Cell(nil), b.cells...)
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	return &Board{width: b.width, height: b.height, cells: b.Cells()}
}

// Position returns the coordinate of the i-th cell in row-major order.
func (b *Board) Position(i int) Position {
	return Position{X: i % b.width, Y: i / b.width}
}

// Find returns every position whose cell satisfies match, row-major.
func (b *Board) Find(match func(Cell) bool) []Position {
	var out []Position
	for i, c := range b.cells {
		if match(c) {
			out = append(out, b.Position(i))
		}
	}
	return out
}

func (b *Board) Fruits() []Position { return b.Find(Cell.HasFruit) }
func (b *Board) Walls() []Position { return b.Find(Cell.HasWall) }
func (b *Board) Empty() []Position { return b.Find(Cell.IsEmpty) }

// AgentPositions groups every occupied position by snake id.
func (b *Board) AgentPositions() map[int][]Position {
	out := make(map[int][]Position)
	for i, c := range b.cells {
		if !c.HasAgent() {
			continue
		}
		for _, id := range c.Agents() {
			out[id] = append(out[id], b.Position(i))
		}
	}
	return out
}

// Equal reports whether both boards have the same size and cells.
func (b *Board) Equal(other *Board) bool {
	if b.width != other.width || b.height != other.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}
