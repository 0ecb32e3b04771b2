package viewer

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Server holds what the HTTP handlers share.
type Server struct {
	roots   []string
	dbCache *DBCache
	hub     *Hub
	logger  *slog.Logger
	// StaticDir, when set, is served as a single page app at /.
	StaticDir string
}

func NewServer(roots []string, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{
		roots:   roots,
		dbCache: NewDBCache(roots, 30*time.Second, logger),
		hub:     hub,
		logger:  logger,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Close() error { return s.dbCache.Close() }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.handleGames)
	mux.HandleFunc("GET /api/games/{id}/turns", s.handleGameTurns)
	mux.HandleFunc("GET /api/bots", s.handleBots)
	mux.Handle("GET /api/live", s.hub)
	mux.HandleFunc("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) { withCORS(w, r) })
	if strings.TrimSpace(s.StaticDir) != "" {
		mux.Handle("GET /", spaHandler{staticPath: s.StaticDir, indexPath: filepath.Join(s.StaticDir, "index.html")})
	}
	return mux
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if err := s.dbCache.Refresh(); err != nil {
		s.logger.Error("refresh duckdb", "error", err)
		http.Error(w, "failed to refresh db: "+err.Error(), http.StatusInternalServerError)
		return
	}
	index, err := s.dbCache.GamesIndex(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	limit := parseIntQuery(r, "limit", 200)
	offset := parseIntQuery(r, "offset", 0)
	games := paginateGames(index, limit, offset, r.URL.Query().Get("sort"), r.URL.Query().Get("dir"))
	writeJSON(w, GamesResponse{Total: int64(len(index)), Games: games})
}

func (s *Server) handleGameTurns(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	gameID := r.PathValue("id")
	if gameID == "" {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	turns, err := queryTurns(r.Context(), db, gameID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(turns) == 0 {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, turns)
}

func (s *Server) handleBots(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := queryBotStats(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []BotStats{}
	}
	writeJSON(w, stats)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

// ServeHTTP serves an existing asset, otherwise index.html so client side
// routes resolve.
func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Clean(r.URL.Path)
	if path == "/" {
		http.ServeFile(w, r, h.indexPath)
		return
	}
	candidate := filepath.Join(h.staticPath, strings.TrimPrefix(path, "/"))
	if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
		http.ServeFile(w, r, candidate)
		return
	}
	http.ServeFile(w, r, h.indexPath)
}
