package reward

import "paddlerl/internal/state"

// Func scores one paddle decision from the state before the strike, the
// state where contact resolved, and the state where the point was awarded.
type Func func(pre, contact, point state.Vector) float64

const (
	PointWon    = 1.0
	PointLost   = -1.0
	ReturnBonus = 0.5
)

// Paddle rewards winning the point and, independently, sending the ball back.
func Paddle(pre, contact, point state.Vector) float64 {
	r := 0.0
	switch {
	case point.OurScore() > pre.OurScore():
		r += PointWon
	case point.OpponentScore() > pre.OpponentScore():
		r += PointLost
	}
	if contact.BallVY() > 0 {
		r += ReturnBonus
	}
	return r
}
