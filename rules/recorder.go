package rules

import "github.com/brensch/snaykuu/game"

// Recorder receives one board snapshot per tick, plus the starting board.
// The board passed in is a private copy; implementations may keep it.
// Accept must not block the engine for long.
type Recorder interface {
	Accept(board *game.Board)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(board *game.Board)

func (f RecorderFunc) Accept(board *game.Board) { f(board) }

type nopRecorder struct{}

func (nopRecorder) Accept(*game.Board) {}
