package scape

import (
	"context"

	"paddlerl/internal/arm"
	"paddlerl/internal/state"
)

// Simulator is one paddle's session with the physics server. Each tick is a
// State read followed by at most one SendJoints.
type Simulator interface {
	State(ctx context.Context) (state.Vector, error)
	SendJoints(ctx context.Context, joints arm.Joints) error
}
