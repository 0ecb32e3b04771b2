// Command botserver serves the reward bot over the remote agent protocol so
// arenas elsewhere can play against it.
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
	"syscall"
	"time"

	"github.com/brensch/snaykuu/executor/remote"
	"github.com/brensch/snaykuu/executor/rewardbot"
	"github.com/brensch/snaykuu/logging"
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func main() {
	listen := flag.String("listen", getEnvOrDefault("LISTEN", ":8000"), "HTTP listen address")
	name := flag.String("name", getEnvOrDefault("BOT_NAME", "rewardbot"), "Name reported at /")
	author := flag.String("author", getEnvOrDefault("BOT_AUTHOR", ""), "Author reported at /")
	margin := flag.Duration("margin", rewardbot.DefaultMargin, "Time kept back from each move's budget")
	logCfg := logging.DefaultConfig()
	flag.StringVar(&logCfg.Format, "log-format", getEnvOrDefault("LOG_FORMAT", logCfg.Format), "Log format: pretty, json or text")
	flag.StringVar(&logCfg.Level, "log-level", getEnvOrDefault("LOG_LEVEL", logCfg.Level), "Log level")
	flag.StringVar(&logCfg.File, "log-file", getEnvOrDefault("LOG_FILE", ""), "Write logs to this rotated file instead of stderr")
	flag.Parse()

	logger, closer, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "botserver:", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	bot := rewardbot.New(logger)
	bot.Margin = *margin
	srv := &remote.Server{
		Info:   remote.InfoResponse{Name: *name, Author: *author, Version: "1"},
		Agent:  bot,
		Logger: logger,
	}
	httpSrv := &http.Server{Addr: *listen, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("bot server listening", "addr", *listen, "name", *name)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
