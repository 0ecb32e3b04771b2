package game

import "context"

//go:generate go tool mockgen -destination=./mocks/agent_mock.go -package=mocks . Agent

// Agent decides a snake's next move.
//
// NextMove runs on its own goroutine and may be abandoned when the thinking
// time runs out; ctx is cancelled at that point and implementations should
// return promptly once it is. Returning an error or panicking both count as
// a thrown exception for the tick.
type Agent interface {
	NextMove(ctx context.Context, self *Snake, state *GameState) (Direction, error)
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc func(ctx context.Context, self *Snake, state *GameState) (Direction, error)

func (f AgentFunc) NextMove(ctx context.Context, self *Snake, state *GameState) (Direction, error) {
	return f(ctx, self, state)
}

// Straight keeps going in the snake's current direction.
var Straight Agent = AgentFunc(func(_ context.Context, self *Snake, _ *GameState) (Direction, error) {
	return self.Direction(), nil
})
