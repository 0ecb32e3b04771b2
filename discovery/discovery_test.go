package discovery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/snaykuu/executor/remote"
	"github.com/brensch/snaykuu/game"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const rosterPage = `<html><body>
<ul>
  <li><a class="bot" href="/bots/alpha">alpha</a></li>
  <li><a class="bot" href="https://example.com/beta/">  beta </a></li>
  <li><a class="bot" href="/bots/dup">alpha</a></li>
  <li><a class="bot" href="mailto:someone@example.com">mail</a></li>
  <li><a href="/bots/plain">not a bot</a></li>
  <li><a class="bot">no link</a></li>
</ul>
</body></html>`

func TestParseRoster(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rosterPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	base, _ := url.Parse("http://roster.local/list")
	got := ParseRoster(doc, base)
	want := []Bot{
		{Name: "alpha", URL: "http://roster.local/bots/alpha"},
		{Name: "beta", URL: "https://example.com/beta/"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bot %d = %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestRegistry_DiscoverRemoteBots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /roster", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<a class="bot" href="/bots/south">southpaw</a>`)
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	mux.HandleFunc("POST /bots/south/move", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(remote.MoveResponse{Move: game.South})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	reg := NewRegistry(ts.Client(), quietLogger())
	reg.Register("local", func() game.Agent {
		return game.AgentFunc(func(context.Context, *game.Snake, *game.GameState) (game.Direction, error) {
			return game.North, nil
		})
	})

	cfg := Config{RosterURLs: []string{ts.URL + "/broken", ts.URL + "/roster"}, RequestDelay: time.Millisecond}
	n, err := reg.Discover(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if n != 1 {
		t.Fatalf("added %d bots want 1", n)
	}
	if names := reg.Names(); len(names) != 2 || names[0] != "local" || names[1] != "southpaw" {
		t.Fatalf("names=%v", names)
	}

	players, err := reg.Players("southpaw", "local", "southpaw")
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if len(players) != 3 || players[0].Agent == players[2].Agent {
		t.Fatalf("each player needs its own agent: %+v", players)
	}

	board, _ := game.NewBoard(7, 7)
	self := game.NewSnake(0, "southpaw")
	_ = self.InitAt(game.Position{X: 3, Y: 3}, game.East)
	state := &game.GameState{Board: board, Snakes: []*game.Snake{self}, Metadata: game.DefaultMetadata()}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	move, err := players[0].Agent.NextMove(ctx, self, state)
	if err != nil || move != game.South {
		t.Fatalf("remote move=%v err=%v", move, err)
	}
}

func TestRegistry_UnknownPlayer(t *testing.T) {
	reg := NewRegistry(nil, quietLogger())
	if _, err := reg.Players("ghost"); err == nil {
		t.Fatalf("expected error for unknown agent")
	}
}
