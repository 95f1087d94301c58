package state

import (
	"errors"
	"fmt"
	"math"
)

// Raw observation layout exchanged with the simulation server.
const (
	IdxPaddleX = 11
	IdxPaddleY = 12
	IdxPaddleZ = 13

	IdxBallX  = 17
	IdxBallY  = 18
	IdxBallZ  = 19
	IdxBallVX = 20
	IdxBallVY = 21
	IdxBallVZ = 22

	IdxPlaying       = 28
	IdxOurScore      = 34
	IdxOpponentScore = 35

	// MinLength is the shortest observation the adapter accepts.
	MinLength = 36

	// FeatureSize is the width of the paddle agents' input (ball position + velocity).
	FeatureSize = 6
)

var ErrShortVector = errors.New("state vector too short")

// Vector is a read-only snapshot of one simulator tick.
type Vector struct {
	raw []float64
}

// New copies raw so later mutation by the transport cannot alias the snapshot.
func New(raw []float64) (Vector, error) {
	if len(raw) < MinLength {
		return Vector{}, fmt.Errorf("%w: got %d values, need %d", ErrShortVector, len(raw), MinLength)
	}
	return Vector{raw: append([]float64(nil), raw...)}, nil
}

// MustNew is New for fixtures; it panics on a short vector.
func MustNew(raw []float64) Vector {
	v, err := New(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Vector) Len() int { return len(v.raw) }

// At returns the raw value at index i, or 0 when out of range.
func (v Vector) At(i int) float64 {
	if i < 0 || i >= len(v.raw) {
		return 0
	}
	return v.raw[i]
}

// Raw returns a copy of the underlying observation.
func (v Vector) Raw() []float64 {
	return append([]float64(nil), v.raw...)
}

func (v Vector) PaddlePosition() [3]float64 {
	return [3]float64{v.At(IdxPaddleX), v.At(IdxPaddleY), v.At(IdxPaddleZ)}
}

func (v Vector) BallPosition() [3]float64 {
	return [3]float64{v.At(IdxBallX), v.At(IdxBallY), v.At(IdxBallZ)}
}

func (v Vector) BallVelocity() [3]float64 {
	return [3]float64{v.At(IdxBallVX), v.At(IdxBallVY), v.At(IdxBallVZ)}
}

func (v Vector) BallX() float64  { return v.At(IdxBallX) }
func (v Vector) BallY() float64  { return v.At(IdxBallY) }
func (v Vector) BallZ() float64  { return v.At(IdxBallZ) }
func (v Vector) BallVX() float64 { return v.At(IdxBallVX) }
func (v Vector) BallVY() float64 { return v.At(IdxBallVY) }
func (v Vector) BallVZ() float64 { return v.At(IdxBallVZ) }

// Playing reports whether a point is in progress.
func (v Vector) Playing() bool { return v.At(IdxPlaying) != 0 }

func (v Vector) OurScore() float64      { return v.At(IdxOurScore) }
func (v Vector) OpponentScore() float64 { return v.At(IdxOpponentScore) }

// SameScore reports whether both scores are equal in v and other.
func (v Vector) SameScore(other Vector) bool {
	return v.OurScore() == other.OurScore() && v.OpponentScore() == other.OpponentScore()
}

// PaddleBallDistance is the Euclidean distance between paddle and ball.
func (v Vector) PaddleBallDistance() float64 {
	p := v.PaddlePosition()
	b := v.BallPosition()
	dx, dy, dz := p[0]-b[0], p[1]-b[1], p[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Features projects the vector onto the paddle agents' input space.
func (v Vector) Features() []float64 {
	out := make([]float64, FeatureSize)
	for i := range out {
		out[i] = v.At(IdxBallX + i)
	}
	return out
}
