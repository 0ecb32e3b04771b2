package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brensch/snaykuu/game"
)

// Agent asks a remote bot for every move. Any transport failure surfaces as
// an error, which the collector turns into a ThrewException outcome.
type Agent struct {
	URL    string
	GameID string
	Client *http.Client
}

func NewAgent(baseURL string, client *http.Client) *Agent {
	if client == nil {
		client = http.DefaultClient
	}
	return &Agent{URL: strings.TrimRight(baseURL, "/") + "/move", Client: client}
}

func (a *Agent) NextMove(ctx context.Context, self *game.Snake, state *game.GameState) (game.Direction, error) {
	timeout := state.Metadata.MaximumThinkingTime
	if d, ok := ctx.Deadline(); ok {
		timeout = time.Until(d)
	}
	body, err := json.Marshal(NewMoveRequest(a.GameID, self, state, timeout))
	if err != nil {
		return 0, fmt.Errorf("encode move request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build move request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("post %s: status %d: %s", a.URL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out MoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode move response: %w", err)
	}
	return out.Move, nil
}
