package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var totalTurns atomic.Int64
var totalGames atomic.Int64

// GameUpdate is sent to the TUI when a worker finishes a game.
type GameUpdate struct {
	WorkerID int
	GameID   string
	Turns    int
	Winners  []string
}

// BoardUpdate carries the latest rendered board of worker 0.
type BoardUpdate string

type model struct {
	gamesPlayed int
	turns       int64
	startTime   time.Time
	recentGames []string
	board       string
	updates     <-chan any
}

func initialModel(updates <-chan any) model {
	return model{startTime: time.Now(), updates: updates}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates <-chan any) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.turns = totalTurns.Load()
		return m, tickCmd()
	case BoardUpdate:
		m.board = string(msg)
		return m, waitForUpdate(m.updates)
	case GameUpdate:
		m.gamesPlayed++
		line := fmt.Sprintf("Worker %d: %s turns=%d winners=%s", msg.WorkerID, msg.GameID[:8], msg.Turns, strings.Join(msg.Winners, ","))
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.gamesPlayed) / duration.Seconds()
	turnsPerSec := float64(m.turns) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec, turnsPerSec = 0, 0
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Games Played: %d\n", m.gamesPlayed)
	fmt.Fprintf(&sb, "Total Turns:  %d\n", m.turns)
	fmt.Fprintf(&sb, "Duration:     %s\n", duration.Round(time.Second))
	fmt.Fprintf(&sb, "Games/Sec:    %.2f\n", gamesPerSec)
	fmt.Fprintf(&sb, "Turns/Sec:    %.2f\n\n", turnsPerSec)
	if m.board != "" {
		sb.WriteString(m.board)
		sb.WriteString("\n")
	}
	sb.WriteString("Recent Games:\n")
	for _, g := range m.recentGames {
		sb.WriteString(g + "\n")
	}
	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}
