package viewer

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// queryAllGames loads every game summary in one pass. Results come from
// each game's last archived row.
func queryAllGames(ctx context.Context, db *sql.DB, roots []string) ([]GameSummary, error) {
	query := `WITH game_stats AS (
		SELECT
			game_id,
			try_cast(regexp_extract(MIN(filename), 'batch_([0-9]+)', 1) AS BIGINT) AS started_ns,
			MAX(turn)::INTEGER AS max_turn,
			COUNT(*)::INTEGER AS turn_count,
			MIN(width)::INTEGER AS width,
			MIN(height)::INTEGER AS height,
			MIN(source)::VARCHAR AS source,
			MIN(filename)::VARCHAR AS file,
			bool_or(terminal) AS finished
		FROM turns
		GROUP BY game_id
	),
	last_turns AS (
		SELECT game_id, snakes
		FROM (
			SELECT game_id, snakes,
				row_number() OVER (PARTITION BY game_id ORDER BY turn DESC) AS rn
			FROM turns
		)
		WHERE rn = 1
	)
	SELECT
		g.game_id,
		g.started_ns,
		g.max_turn,
		g.turn_count,
		g.width,
		g.height,
		g.source,
		g.file,
		g.finished,
		lt.snakes
	FROM game_stats g
	LEFT JOIN last_turns lt ON g.game_id = lt.game_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameSummary, 0, 1024)
	for rows.Next() {
		var g GameSummary
		var file string
		var snakesAny any
		if err := rows.Scan(&g.GameID, &g.StartedNs, &g.MaxTurn, &g.TurnCount, &g.Width, &g.Height, &g.Source, &file, &g.Finished, &snakesAny); err != nil {
			return nil, err
		}
		g.SourceFile = makeRelativeToRoots(file, roots)
		g.Results = formatSnakeResults(asSnakes(snakesAny))
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paginateGames(out, len(out), 0, "", ""), nil
}

// formatSnakeResults renders "name:rank" per snake, or "name:alive/dead"
// for games that never finished.
func formatSnakeResults(snakes []Snake) string {
	parts := make([]string, 0, len(snakes))
	for _, s := range snakes {
		switch {
		case s.Rank > 0:
			parts = append(parts, fmt.Sprintf("%s:%d", s.Name, s.Rank))
		case s.Alive:
			parts = append(parts, s.Name+":alive")
		default:
			parts = append(parts, s.Name+":dead")
		}
	}
	return strings.Join(parts, " ")
}

func normalizeSort(sortKey, sortDir string) (string, string) {
	sk := strings.ToLower(strings.TrimSpace(sortKey))
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	switch sk {
	case "time", "started", "started_ns":
		sk = "started_ns"
	case "id", "game", "game_id":
		sk = "game_id"
	case "turns", "turn_count":
		sk = "turn_count"
	case "source":
		sk = "source"
	case "file", "filename":
		sk = "file"
	default:
		sk, sd = "started_ns", "desc"
	}
	return sk, sd
}

// paginateGames sorts a copy of the index and returns one page of it.
// Games without a start time sort last either way.
func paginateGames(games []GameSummary, limit, offset int, sortKey, sortDir string) []GameSummary {
	sk, sd := normalizeSort(sortKey, sortDir)
	sorted := slices.Clone(games)
	slices.SortStableFunc(sorted, func(a, b GameSummary) int {
		if sk == "started_ns" && (a.StartedNs == nil) != (b.StartedNs == nil) {
			if a.StartedNs == nil {
				return 1
			}
			return -1
		}
		var c int
		switch sk {
		case "started_ns":
			if a.StartedNs != nil && b.StartedNs != nil {
				c = cmp.Compare(*a.StartedNs, *b.StartedNs)
			}
		case "turn_count":
			c = cmp.Compare(a.TurnCount, b.TurnCount)
		case "source":
			c = strings.Compare(a.Source, b.Source)
		case "file":
			c = strings.Compare(a.SourceFile, b.SourceFile)
		}
		if c == 0 {
			c = strings.Compare(a.GameID, b.GameID)
		}
		if sd == "desc" {
			return -c
		}
		return c
	})

	if offset >= len(sorted) {
		return []GameSummary{}
	}
	end := min(offset+limit, len(sorted))
	return sorted[offset:end]
}

func makeRelativeToRoots(filename string, roots []string) string {
	fn := strings.TrimSpace(filename)
	best := fn
	for _, r := range roots {
		root := strings.TrimSpace(r)
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, fn)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if cand := filepath.ToSlash(filepath.Join(root, rel)); len(cand) < len(best) {
			best = cand
		}
	}
	return best
}

func queryTurns(ctx context.Context, db *sql.DB, gameID string) ([]Turn, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT game_id, turn::INTEGER, width::INTEGER, height::INTEGER, cells, fruit_x, fruit_y, snakes, terminal, source
		 FROM turns
		 WHERE game_id = ?
		 ORDER BY turn ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]Turn, 0, 256)
	for rows.Next() {
		var t Turn
		var cellsAny, fruitXAny, fruitYAny, snakesAny any
		if err := rows.Scan(&t.GameID, &t.Turn, &t.Width, &t.Height, &cellsAny, &fruitXAny, &fruitYAny, &snakesAny, &t.Terminal, &t.Source); err != nil {
			return nil, err
		}
		t.Cells = asCells(cellsAny)
		t.Fruit = zipPoints(asInt32Slice(fruitXAny), asInt32Slice(fruitYAny))
		t.Snakes = asSnakes(snakesAny)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}

// queryBotStats aggregates terminal rows per snake name.
func queryBotStats(ctx context.Context, db *sql.DB) ([]BotStats, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			s.name AS name,
			COUNT(*)::BIGINT AS games,
			SUM(CASE WHEN s.rank = 1 THEN 1 ELSE 0 END)::BIGINT AS wins,
			AVG(s.score)::DOUBLE AS avg_score,
			AVG(s.lifespan)::DOUBLE AS avg_lifespan
		FROM turns, UNNEST(snakes) AS u(s)
		WHERE terminal
		GROUP BY s.name
		ORDER BY wins DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BotStats
	for rows.Next() {
		var b BotStats
		if err := rows.Scan(&b.Name, &b.Games, &b.Wins, &b.AvgScore, &b.AvgLifespan); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
