package game

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidMetadata = errors.New("invalid game metadata")

// Metadata holds the fixed rules of one match.
type Metadata struct {
	BoardWidth          int           `json:"board_width"`
	BoardHeight         int           `json:"board_height"`
	MaximumThinkingTime time.Duration `json:"maximum_thinking_time"`
	GrowthFrequency     int           `json:"growth_frequency"`
	FruitFrequency      int           `json:"fruit_frequency"`
	FruitGoal           int           `json:"fruit_goal"`
}

// DefaultMetadata is a 20x20 board, 100ms per move, growth every 5 ticks,
// fruit every 10 ticks and a goal of 5 fruit.
func DefaultMetadata() Metadata {
	return Metadata{
		BoardWidth:          20,
		BoardHeight:         20,
		MaximumThinkingTime: 100 * time.Millisecond,
		GrowthFrequency:     5,
		FruitFrequency:      10,
		FruitGoal:           5,
	}
}

func (m Metadata) BoardSize() int { return m.BoardWidth * m.BoardHeight }

func (m Metadata) Validate() error {
	var errs []error
	if m.BoardWidth < MinBoardSize || m.BoardHeight < MinBoardSize {
		errs = append(errs, fmt.Errorf("%w: got %dx%d", ErrBoardTooSmall, m.BoardWidth, m.BoardHeight))
	}
	if m.MaximumThinkingTime <= 0 {
		errs = append(errs, fmt.Errorf("%w: maximum thinking time must be positive, got %v", ErrInvalidMetadata, m.MaximumThinkingTime))
	}
	if m.GrowthFrequency <= 0 {
		errs = append(errs, fmt.Errorf("%w: growth frequency must be at least 1, got %d", ErrInvalidMetadata, m.GrowthFrequency))
	}
	if m.FruitFrequency <= 0 {
		errs = append(errs, fmt.Errorf("%w: fruit frequency must be at least 1, got %d", ErrInvalidMetadata, m.FruitFrequency))
	}
	if m.FruitGoal <= 0 {
		errs = append(errs, fmt.Errorf("%w: fruit goal must be at least 1, got %d", ErrInvalidMetadata, m.FruitGoal))
	}
	return errors.Join(errs...)
}
