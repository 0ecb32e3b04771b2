package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brensch/snaykuu/game"
)

// DefaultMaxBodyBytes fits a move request for a board of about 200x200:
// roughly 20 bytes per encoded cell plus the snake bodies.
const DefaultMaxBodyBytes = 1 << 20

// Server exposes a game.Agent over HTTP.
type Server struct {
	Info   InfoResponse
	Agent  game.Agent
	Logger *slog.Logger
	// MaxBodyBytes caps a move request. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("POST /move", s.handleMove)
	return mux
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Info)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	var req MoveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger().Warn("move request too large", "limit", limit, "remote", r.RemoteAddr)
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, self, err := req.State()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	move, err := s.Agent.NextMove(ctx, self, state)
	if err != nil {
		s.logger().Warn("agent failed", "game", req.GameID, "turn", req.Turn, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger().Debug("move",
		"game", req.GameID,
		"turn", req.Turn,
		"snake", self.String(),
		"move", move.String(),
		"elapsed", time.Since(started),
	)
	writeJSON(w, MoveResponse{Move: move})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
