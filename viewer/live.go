package viewer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snaykuu/game"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxReadBytes = 1 << 20
	clientBuffer = 64
)

// LiveFrame is pushed to websocket clients for every recorded board.
type LiveFrame struct {
	GameID string   `json:"game_id"`
	Turn   int      `json:"turn"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Cells  []uint64 `json:"cells"`
}

type liveClient struct {
	conn   *websocket.Conn
	gameID string // empty follows every game
	send   chan []byte
}

// Hub fans recorded frames out to websocket clients. It implements
// recorder.Sink. Slow clients miss frames rather than stall a match.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	// pingPeriod must stay below pongWait.
	pingPeriod time.Duration
	pongWait   time.Duration

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:     logger,
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		clients:    make(map[*liveClient]struct{}),
	}
}

// Clients is the number of connected websockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Frame(gameID string, turn int, board *game.Board) {
	cells := board.Cells()
	frame := LiveFrame{GameID: gameID, Turn: turn, Width: board.Width(), Height: board.Height(), Cells: make([]uint64, len(cells))}
	for i, c := range cells {
		frame.Cells[i] = uint64(c)
	}
	msg, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode live frame", "game", gameID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.gameID != "" && c.gameID != gameID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("live client lagging, frame dropped", "game", gameID, "turn", turn)
		}
	}
}

// ServeHTTP upgrades the request. ?game=<id> follows a single game.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &liveClient{conn: conn, gameID: r.URL.Query().Get("game"), send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("live client connected", "remote", r.RemoteAddr, "game", c.gameID)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the client going away. A client that stops
// answering pings is dropped once its read deadline passes.
func (h *Hub) readPump(c *liveClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("live client read", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *liveClient) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
