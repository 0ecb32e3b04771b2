package viewer

// GameSummary is one entry of the games list.
type GameSummary struct {
	GameID string `json:"game_id"`
	// StartedNs comes from the batch_<unix_nano>.parquet file name. Nil when
	// the file was named some other way.
	StartedNs  *int64 `json:"started_ns"`
	MaxTurn    int32  `json:"max_turn"`
	TurnCount  int32  `json:"turn_count"`
	Width      int32  `json:"width"`
	Height     int32  `json:"height"`
	Source     string `json:"source"`
	SourceFile string `json:"file"`
	Finished   bool   `json:"finished"`
	Results    string `json:"results"`
}

// GamesResponse is the paginated response for /api/games.
type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type Snake struct {
	ID        int32   `json:"id"`
	Name      string  `json:"name"`
	Alive     bool    `json:"alive"`
	Score     int32   `json:"score"`
	Lifespan  int32   `json:"lifespan"`
	Direction string  `json:"direction"`
	Outcome   string  `json:"outcome"`
	Rank      int32   `json:"rank,omitempty"`
	Body      []Point `json:"body"`
}

// Turn is one archived board.
type Turn struct {
	GameID   string   `json:"game_id"`
	Turn     int32    `json:"turn"`
	Width    int32    `json:"width"`
	Height   int32    `json:"height"`
	Cells    []uint64 `json:"cells"`
	Fruit    []Point  `json:"fruit"`
	Snakes   []Snake  `json:"snakes"`
	Terminal bool     `json:"terminal"`
	Source   string   `json:"source"`
}

// BotStats aggregates finished games per snake name.
type BotStats struct {
	Name        string  `json:"name"`
	Games       int64   `json:"games"`
	Wins        int64   `json:"wins"`
	AvgScore    float64 `json:"avg_score"`
	AvgLifespan float64 `json:"avg_lifespan"`
}
