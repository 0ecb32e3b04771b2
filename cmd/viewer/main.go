// Command viewer serves the archive API and, optionally, a built single
// page app.
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

	"github.com/brensch/snaykuu/logging"
	"github.com/brensch/snaykuu/viewer"
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDataRoots(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func main() {
	listen := flag.String("listen", getEnvOrDefault("LISTEN", "127.0.0.1:8080"), "HTTP listen address")
	dataDirs := flag.String("data-dirs", getEnvOrDefault("DATA_DIRS", filepath.Join("data", "arena")), "Comma-separated directories holding archive parquet batches")
	staticDir := flag.String("static-dir", getEnvOrDefault("STATIC_DIR", ""), "Optional directory to serve as SPA static")
	logCfg := logging.DefaultConfig()
	flag.StringVar(&logCfg.Format, "log-format", getEnvOrDefault("LOG_FORMAT", logCfg.Format), "Log format: pretty, json or text")
	flag.StringVar(&logCfg.Level, "log-level", getEnvOrDefault("LOG_LEVEL", logCfg.Level), "Log level")
	flag.Parse()

	logger, closer, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	roots := parseDataRoots(*dataDirs)
	srv := viewer.NewServer(roots, nil, logger)
	srv.StaticDir = *staticDir
	defer srv.Close()

	httpSrv := &http.Server{Addr: *listen, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("viewer listening", "addr", "http://"+*listen, "roots", roots, "static", *staticDir)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
