package trajectory

import (
	"math"

	"paddlerl/internal/state"
)

const DefaultGravity = 9.81

// Predictor projects the ball's flight from a single observation.
type Predictor interface {
	// Landing returns where the ball descends through height z; ok is false
	// when the flight never reaches z on the way down.
	Landing(s state.Vector, z float64) (x, y float64, ok bool)
	// Apex returns the highest point of the current flight; ok is false when
	// the ball is not rising.
	Apex(s state.Vector) (x, y, z float64, ok bool)
}

// Ballistic ignores drag and spin.
type Ballistic struct {
	Gravity float64
}

func NewBallistic() Ballistic {
	return Ballistic{Gravity: DefaultGravity}
}

func (b Ballistic) g() float64 {
	if b.Gravity <= 0 {
		return DefaultGravity
	}
	return b.Gravity
}

func (b Ballistic) Landing(s state.Vector, z float64) (float64, float64, bool) {
	g := b.g()
	px, py, pz := s.BallX(), s.BallY(), s.BallZ()
	vx, vy, vz := s.BallVX(), s.BallVY(), s.BallVZ()

	// pz + vz*t - g/2*t^2 = z, descending root.
	disc := vz*vz + 2*g*(pz-z)
	if disc < 0 {
		return 0, 0, false
	}
	t := (vz + math.Sqrt(disc)) / g
	if t <= 0 {
		return 0, 0, false
	}
	return px + vx*t, py + vy*t, true
}

func (b Ballistic) Apex(s state.Vector) (float64, float64, float64, bool) {
	vz := s.BallVZ()
	if vz <= 0 {
		return 0, 0, 0, false
	}
	g := b.g()
	t := vz / g
	return s.BallX() + s.BallVX()*t, s.BallY() + s.BallVY()*t, s.BallZ() + vz*vz/(2*g), true
}
