// Package discovery keeps the roster of agents an arena can pit against
// each other. Built-in agents are registered in code; remote bots are found
// by crawling roster pages that link to them.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/snaykuu/executor/remote"
	"github.com/brensch/snaykuu/game"
	"github.com/brensch/snaykuu/rules"
)

// Factory builds a fresh agent for one match.
type Factory func() game.Agent

// Config holds roster crawl settings.
type Config struct {
	RosterURLs   []string
	RequestDelay time.Duration // Delay between roster requests
	MaxBots      int           // Per roster page, 0 = unlimited
}

func DefaultConfig() Config {
	return Config{
		RequestDelay: 200 * time.Millisecond,
		MaxBots:      50,
	}
}

// Registry maps agent names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	client    *http.Client
	logger    *slog.Logger
}

func NewRegistry(client *http.Client, logger *slog.Logger) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{factories: make(map[string]Factory), client: client, logger: logger}
}

// Register adds or replaces an agent.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Players builds one player per name, in order. The same name may appear
// more than once.
func (r *Registry) Players(names ...string) ([]rules.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]rules.Player, 0, len(names))
	for _, n := range names {
		f, ok := r.factories[n]
		if !ok {
			return nil, fmt.Errorf("unknown agent %q", n)
		}
		players = append(players, rules.Player{Name: n, Agent: f()})
	}
	return players, nil
}

// Bot is a remote bot listed on a roster page.
type Bot struct {
	Name string
	URL  string
}

// Discover crawls every roster page and registers each bot found as a
// remote agent. Pages that fail are logged and skipped.
func (r *Registry) Discover(ctx context.Context, cfg Config) (int, error) {
	added := 0
	for i, roster := range cfg.RosterURLs {
		if i > 0 && cfg.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return added, ctx.Err()
			case <-time.After(cfg.RequestDelay):
			}
		}
		bots, err := r.fetchRoster(ctx, roster)
		if err != nil {
			if ctx.Err() != nil {
				return added, ctx.Err()
			}
			r.logger.Warn("roster fetch failed", "url", roster, "error", err)
			continue
		}
		if cfg.MaxBots > 0 && len(bots) > cfg.MaxBots {
			bots = bots[:cfg.MaxBots]
		}
		for _, b := range bots {
			r.Register(b.Name, r.remoteFactory(b.URL))
			added++
		}
		r.logger.Info("roster crawled", "url", roster, "bots", len(bots))
	}
	return added, nil
}

func (r *Registry) remoteFactory(baseURL string) Factory {
	return func() game.Agent { return remote.NewAgent(baseURL, r.client) }
}

func (r *Registry) fetchRoster(ctx context.Context, rosterURL string) ([]Bot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rosterURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "snaykuu-arena/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	base, err := url.Parse(rosterURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseRoster(doc, base), nil
}

// ParseRoster extracts every <a class="bot"> link. Relative links are
// resolved against base; duplicate names keep the first link.
func ParseRoster(doc *goquery.Document, base *url.URL) []Bot {
	var bots []Bot
	seen := make(map[string]bool)
	doc.Find("a.bot[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := strings.TrimSpace(s.Text())
		if name == "" || seen[name] {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return
		}
		seen[name] = true
		bots = append(bots, Bot{Name: name, URL: ref.String()})
	})
	return bots
}
