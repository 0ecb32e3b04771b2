package main

import (
	"context"
	"log/slog"

	"github.com/brensch/snaykuu/store"
)

type gameWriteRequest struct {
	gameID string
	rows   []store.ArchiveTurnRow
}

// parquetWriterLoop streams finished games into batch files, rolling over to
// a new file every gamesPerFlush games. Whatever is buffered when in closes
// is flushed before returning.
func parquetWriterLoop(ctx context.Context, outDir string, gamesPerFlush int, in <-chan gameWriteRequest, logger *slog.Logger) error {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var bw *store.BatchWriter
	flush := func() error {
		if bw == nil {
			return nil
		}
		outPath, rows, games, err := bw.Finalize()
		bw = nil
		if err != nil {
			logger.Error("parquet flush failed", "error", err)
			return err
		}
		if outPath != "" {
			logger.Info("parquet flush ok", "path", outPath, "games", games, "rows", rows)
		}
		return nil
	}

	for req := range in {
		if len(req.rows) == 0 {
			continue
		}
		if bw == nil {
			var err error
			if bw, err = store.NewBatchWriter(outDir); err != nil {
				return err
			}
		}
		if err := bw.WriteGame(req.rows); err != nil {
			logger.Error("parquet write failed", "game", req.gameID, "error", err)
			continue
		}
		if bw.Games() >= gamesPerFlush {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if ctx.Err() != nil {
		logger.Info("final parquet flush after shutdown")
	}
	return flush()
}
