// Command arena plays matches between registered agents on a pool of
// workers and archives every turn to parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/snaykuu/discovery"
	"github.com/brensch/snaykuu/executor/rewardbot"
	"github.com/brensch/snaykuu/executor/selfplay"
	"github.com/brensch/snaykuu/game"
	"github.com/brensch/snaykuu/logging"
	"github.com/brensch/snaykuu/recorder"
	"github.com/brensch/snaykuu/store"
	"github.com/brensch/snaykuu/viewer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "arena:", err)
		os.Exit(1)
	}
}

func run() error {
	meta := game.DefaultMetadata()
	flag.IntVar(&meta.BoardWidth, "width", getEnvIntOrDefault("WIDTH", meta.BoardWidth), "Board width including walls")
	flag.IntVar(&meta.BoardHeight, "height", getEnvIntOrDefault("HEIGHT", meta.BoardHeight), "Board height including walls")
	flag.DurationVar(&meta.MaximumThinkingTime, "thinking-time", getEnvDurationOrDefault("THINKING_TIME", meta.MaximumThinkingTime), "Time each agent gets per move")
	flag.IntVar(&meta.GrowthFrequency, "growth", getEnvIntOrDefault("GROWTH", meta.GrowthFrequency), "Snakes grow every N turns")
	flag.IntVar(&meta.FruitFrequency, "fruit-frequency", getEnvIntOrDefault("FRUIT_FREQUENCY", meta.FruitFrequency), "A fruit spawns every N turns")
	flag.IntVar(&meta.FruitGoal, "fruit-goal", getEnvIntOrDefault("FRUIT_GOAL", meta.FruitGoal), "Fruit needed to end the game")
	gameSpeed := flag.Duration("game-speed", getEnvDurationOrDefault("GAME_SPEED", 0), "Minimum wall time per turn, 0 plays as fast as possible")

	players := flag.String("players", getEnvOrDefault("PLAYERS", "rewardbot,rewardbot"), "Comma-separated agent names for each game")
	rosters := flag.String("rosters", getEnvOrDefault("ROSTERS", ""), "Comma-separated roster page URLs listing remote bots")
	workers := flag.Int("workers", getEnvIntOrDefault("WORKERS", 4), "Number of games played in parallel")
	maxGames := flag.Int64("games", int64(getEnvIntOrDefault("GAMES", 0)), "Stop after this many games, 0 runs until interrupted")
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", filepath.Join("data", "arena")), "Directory for archive parquet batches")
	gamesPerFlush := flag.Int("games-per-flush", getEnvIntOrDefault("GAMES_PER_FLUSH", 50), "Games per parquet batch")
	replayDir := flag.String("replay-dir", getEnvOrDefault("REPLAY_DIR", ""), "If set, write a replay file per game here")
	liveAddr := flag.String("live-addr", getEnvOrDefault("LIVE_ADDR", ""), "If set, stream frames over websocket at ws://ADDR/api/live")
	tui := flag.Bool("tui", getEnvBoolOrDefault("TUI", false), "Show a live terminal dashboard")

	logCfg := logging.DefaultConfig()
	flag.StringVar(&logCfg.Format, "log-format", getEnvOrDefault("LOG_FORMAT", logCfg.Format), "Log format: pretty, json or text")
	flag.StringVar(&logCfg.Level, "log-level", getEnvOrDefault("LOG_LEVEL", logCfg.Level), "Log level")
	flag.StringVar(&logCfg.File, "log-file", getEnvOrDefault("LOG_FILE", ""), "Write logs to this rotated file instead of stderr")
	flag.Parse()

	if *tui && logCfg.File == "" {
		// Keep the dashboard readable.
		logCfg.File = "arena.log"
	}
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if err := meta.Validate(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	registry := discovery.NewRegistry(nil, logger)
	bot := rewardbot.New(logger)
	registry.Register("rewardbot", func() game.Agent { return bot })
	if urls := splitList(*rosters); len(urls) > 0 {
		cfg := discovery.DefaultConfig()
		cfg.RosterURLs = urls
		n, err := registry.Discover(ctx, cfg)
		if err != nil {
			return err
		}
		logger.Info("remote bots discovered", "count", n, "agents", registry.Names())
	}
	names := splitList(*players)
	if _, err := registry.Players(names...); err != nil {
		return err
	}

	var sinks []recorder.Sink
	if *liveAddr != "" {
		hub := viewer.NewHub(logger)
		sinks = append(sinks, hub)
		mux := http.NewServeMux()
		mux.Handle("GET /api/live", hub)
		srv := &http.Server{Addr: *liveAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("live stream listening", "addr", *liveAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("live stream server", "error", err)
			}
		}()
		defer srv.Close()
	}

	updates := make(chan any, *workers*2)
	writeReqs := make(chan gameWriteRequest, *workers*4)

	var writers errgroup.Group
	writers.Go(func() error {
		err := parquetWriterLoop(ctx, *outDir, *gamesPerFlush, writeReqs, logger)
		if err != nil {
			cancel()
			for range writeReqs {
			}
		}
		return err
	})

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		workerID := i
		g.Go(func() error {
			return worker(gctx, workerID, workerConfig{
				meta:      meta,
				speed:     *gameSpeed,
				names:     names,
				registry:  registry,
				sinks:     sinks,
				replayDir: *replayDir,
				maxGames:  *maxGames,
				stopAll:   cancel,
				showBoard: *tui && workerID == 0,
				updates:   updates,
				writeReqs: writeReqs,
				logger:    logger.With("worker", workerID),
			})
		})
	}

	workersDone := make(chan error, 1)
	go func() {
		err := g.Wait()
		close(writeReqs)
		close(updates)
		workersDone <- err
	}()

	if *tui {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			logger.Error("tui", "error", err)
		}
		cancel()
	} else {
		go func() {
			for range updates {
			}
		}()
	}

	werr := <-workersDone
	if err := writers.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete", "games", totalGames.Load(), "turns", totalTurns.Load())
	if werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	return nil
}

type workerConfig struct {
	meta      game.Metadata
	speed     time.Duration
	names     []string
	registry  *discovery.Registry
	sinks     []recorder.Sink
	replayDir string
	maxGames  int64
	stopAll   context.CancelFunc
	showBoard bool
	updates   chan<- any
	writeReqs chan<- gameWriteRequest
	logger    *slog.Logger
}

// worker plays games back to back until ctx ends. Interrupted games are
// dropped rather than archived half finished.
func worker(ctx context.Context, id int, cfg workerConfig) error {
	for ctx.Err() == nil {
		players, err := cfg.registry.Players(cfg.names...)
		if err != nil {
			return err
		}
		onTick := func(state *game.GameState, _ []game.Outcome) {
			totalTurns.Add(1)
			if cfg.showBoard {
				select {
				case cfg.updates <- BoardUpdate(selfplay.RenderBoard(state)):
				default:
				}
			}
		}

		out, err := selfplay.PlayGame(ctx, selfplay.Config{
			Metadata:  cfg.meta,
			Players:   players,
			Source:    "arena",
			GameSpeed: cfg.speed,
			Sinks:     cfg.sinks,
			Logger:    cfg.logger,
			OnTick:    onTick,
		})
		if err != nil {
			if ctx.Err() != nil {
				cfg.logger.Info("game aborted by shutdown")
				return nil
			}
			return err
		}

		cfg.writeReqs <- gameWriteRequest{gameID: out.GameID, rows: out.Rows}
		if cfg.replayDir != "" {
			path := filepath.Join(cfg.replayDir, store.ReplayName(out.GameID, time.Now()))
			if _, err := store.SaveReplay(path, out.Recorded); err != nil {
				cfg.logger.Warn("replay not saved", "path", path, "error", err)
			}
		}

		winners := make([]string, len(out.Result.Winners))
		for i, w := range out.Result.Winners {
			winners[i] = w.Name()
		}
		select {
		case cfg.updates <- GameUpdate{WorkerID: id, GameID: out.GameID, Turns: out.Result.Turns, Winners: winners}:
		default:
		}

		if total := totalGames.Add(1); cfg.maxGames > 0 && total >= cfg.maxGames {
			cfg.stopAll()
		}
	}
	return nil
}

func splitList(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
