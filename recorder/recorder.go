// Package recorder keeps every board a match produces and fans frames out
// to live sinks such as the viewer's websocket hub.
package recorder

import (
	"log/slog"
	"sync"

	"github.com/brensch/snaykuu/game"
)

// QueueSize is how many frames may wait for the consumer before Accept
// blocks the engine.
const QueueSize = 100

// Sink receives frames as they are recorded. Frame is called from the
// recorder's consumer goroutine and should not block.
type Sink interface {
	Frame(gameID string, turn int, board *game.Board)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(gameID string, turn int, board *game.Board)

func (f SinkFunc) Frame(gameID string, turn int, board *game.Board) { f(gameID, turn, board) }

// Recorder implements rules.Recorder. Frames pass through a buffered queue
// drained by one consumer goroutine.
type Recorder struct {
	gameID string
	meta   game.Metadata
	names  []string
	sinks  []Sink
	logger *slog.Logger

	queue chan *game.Board
	done  chan struct{}

	// mu guards closed against concurrent Accept and Close.
	mu     sync.RWMutex
	closed bool

	// frames is only touched by the consumer until done is closed.
	frames []*game.Board
}

type Option func(*Recorder)

func WithSinks(sinks ...Sink) Option { return func(r *Recorder) { r.sinks = append(r.sinks, sinks...) } }
func WithLogger(l *slog.Logger) Option { return func(r *Recorder) { r.logger = l } }

// Start creates a recorder and its consumer goroutine. names holds the
// snake names indexed by id.
func Start(gameID string, meta game.Metadata, names []string, opts ...Option) *Recorder {
	r := &Recorder{
		gameID: gameID,
		meta:   meta,
		names:  append([]string(nil), names...),
		queue:  make(chan *game.Board, QueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	go r.consume()
	return r
}

func (r *Recorder) consume() {
	defer close(r.done)
	for board := range r.queue {
		turn := len(r.frames)
		r.frames = append(r.frames, board)
		for _, s := range r.sinks {
			s.Frame(r.gameID, turn, board)
		}
	}
}

// Accept queues a frame, blocking while the queue is full. Frames arriving
// after Close are dropped.
func (r *Recorder) Accept(board *game.Board) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("frame dropped after recorder closed", "game", r.gameID)
		return
	}
	r.queue <- board
}

// Close stops accepting frames and waits until every queued frame has been
// consumed. It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

// Save closes the recorder and returns the recorded game.
func (r *Recorder) Save() *game.RecordedGame {
	r.Close()
	return &game.RecordedGame{
		Metadata: r.meta,
		Snakes:   append([]string(nil), r.names...),
		Frames:   append([]*game.Board(nil), r.frames...),
	}
}

func (r *Recorder) GameID() string { return r.gameID }
