package game

import "sort"

// Standing is one rank of the leaderboard; tied snakes share it.
type Standing struct {
	Rank   int
	Snakes []*Snake
}

// compareSnakes orders by lifespan, then score. Positive means a ranks
// above b.
func compareSnakes(a, b *Snake) int {
	switch {
	case a.Lifespan() != b.Lifespan():
		if a.Lifespan() > b.Lifespan() {
			return 1
		}
		return -1
	case a.Score() != b.Score():
		if a.Score() > b.Score() {
			return 1
		}
		return -1
	}
	return 0
}

// Leaderboard ranks snakes by lifespan with score as the tiebreaker. Snakes
// that tie on both share a rank, and a rank is one more than the number of
// snakes ahead of it (1, 2, 2, 4 by snake).
func Leaderboard(snakes []*Snake) []Standing {
	sorted := append([]*Snake(nil), snakes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := compareSnakes(sorted[i], sorted[j]); c != 0 {
			return c > 0
		}
		return sorted[i].ID() < sorted[j].ID()
	})

	var out []Standing
	for i, s := range sorted {
		if n := len(out); n > 0 && compareSnakes(out[n-1].Snakes[0], s) == 0 {
			out[n-1].Snakes = append(out[n-1].Snakes, s)
			continue
		}
		out = append(out, Standing{Rank: i + 1, Snakes: []*Snake{s}})
	}
	return out
}

// Winners returns the rank 1 group, or nil for an empty field.
func Winners(snakes []*Snake) []*Snake {
	board := Leaderboard(snakes)
	if len(board) == 0 {
		return nil
	}
	return board[0].Snakes
}
