// Command debuggame plays one match with full logging, prints the board
// after every turn and writes a replay file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brensch/snaykuu/executor/rewardbot"
	"github.com/brensch/snaykuu/executor/selfplay"
	"github.com/brensch/snaykuu/game"
	"github.com/brensch/snaykuu/logging"
	"github.com/brensch/snaykuu/rules"
	"github.com/brensch/snaykuu/store"
)

func main() {
	meta := game.DefaultMetadata()
	flag.IntVar(&meta.BoardWidth, "width", meta.BoardWidth, "Board width including walls")
	flag.IntVar(&meta.BoardHeight, "height", meta.BoardHeight, "Board height including walls")
	flag.DurationVar(&meta.MaximumThinkingTime, "thinking-time", meta.MaximumThinkingTime, "Time each agent gets per move")
	flag.IntVar(&meta.GrowthFrequency, "growth", meta.GrowthFrequency, "Snakes grow every N turns")
	flag.IntVar(&meta.FruitFrequency, "fruit-frequency", meta.FruitFrequency, "A fruit spawns every N turns")
	flag.IntVar(&meta.FruitGoal, "fruit-goal", meta.FruitGoal, "Fruit needed to end the game")
	snakes := flag.Int("snakes", 2, "Number of reward bots")
	seed := flag.Int64("seed", 0, "Placement and fruit seed, 0 picks one")
	gameSpeed := flag.Duration("game-speed", 0, "Minimum wall time per turn")
	outDir := flag.String("out-dir", "debug_games", "Directory for the replay file")
	quiet := flag.Bool("quiet", false, "Do not print the board every turn")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "text"
	logCfg.Level = "debug"
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	bot := rewardbot.New(logger)
	players := make([]rules.Player, *snakes)
	for i := range players {
		players[i] = rules.Player{Name: fmt.Sprintf("bot%d", i), Agent: bot}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	out, err := selfplay.PlayGame(ctx, selfplay.Config{
		Metadata:  meta,
		Players:   players,
		Source:    "debug",
		GameSpeed: *gameSpeed,
		Seed:      *seed,
		Logger:    logger,
		OnTick: func(state *game.GameState, outcomes []game.Outcome) {
			if *quiet {
				return
			}
			moves := make([]string, 0, len(outcomes))
			for i, o := range outcomes {
				moves = append(moves, fmt.Sprintf("%d:%v", i, o))
			}
			fmt.Printf("%s%s\n\n", selfplay.RenderBoard(state), strings.Join(moves, " "))
		},
	})
	if err != nil {
		logger.Error("debug game failed", "error", err)
		os.Exit(1)
	}

	for _, st := range out.Result.Leaderboard {
		for _, sn := range st.Snakes {
			logger.Info("standing", slog.Int("rank", st.Rank), slog.String("snake", sn.String()),
				slog.Int("score", sn.Score()), slog.Int("lifespan", sn.Lifespan()))
		}
	}

	path := filepath.Join(*outDir, store.ReplayName(out.GameID, time.Now()))
	n, err := store.SaveReplay(path, out.Recorded)
	if err != nil {
		logger.Error("replay not written", "error", err)
		os.Exit(1)
	}
	logger.Info("replay written", "path", path, "bytes", n, "turns", out.Result.Turns)
}
