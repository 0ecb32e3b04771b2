package game

// RecordedGame is every board of a finished match in order, the starting
// board first. Snakes holds display names indexed by snake id.
type RecordedGame struct {
	Metadata Metadata
	Snakes   []string
	Frames   []*Board
}

// Final returns the last recorded board, or nil when nothing was recorded.
func (g *RecordedGame) Final() *Board {
	if len(g.Frames) == 0 {
		return nil
	}
	return g.Frames[len(g.Frames)-1]
}
