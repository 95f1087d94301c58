package ddpg

import (
	"fmt"
	"math"

	"paddlerl/internal/nn"
)

// ActionSpace bounds each action dimension.
type ActionSpace struct {
	Low  []float64
	High []float64
}

func (s ActionSpace) Dim() int { return len(s.Low) }

func (s ActionSpace) Validate() error {
	if len(s.Low) == 0 || len(s.Low) != len(s.High) {
		return fmt.Errorf("action space bounds must be non-empty and equal length, got %d/%d", len(s.Low), len(s.High))
	}
	for i := range s.Low {
		if !(s.Low[i] < s.High[i]) {
			return fmt.Errorf("action space dim %d has low %v >= high %v", i, s.Low[i], s.High[i])
		}
	}
	return nil
}

// Clip clamps action into the space in place.
func (s ActionSpace) Clip(action []float64) {
	for i := range action {
		action[i] = nn.Sat(action[i], s.High[i], s.Low[i])
	}
}

// fromUnit maps an actor output in [-1, 1] to the space.
func (s ActionSpace) fromUnit(u []float64) []float64 {
	out := make([]float64, len(u))
	for i, v := range u {
		out[i] = nn.UnscaleValue(v, s.High[i], s.Low[i])
	}
	return out
}

// toUnit maps an action from the space to [-1, 1].
func (s ActionSpace) toUnit(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = nn.ScaleValue(v, s.High[i], s.Low[i])
	}
	return out
}

// SmashSpace corrects paddle tilt (a0) and spin (a1) around the smash stance.
func SmashSpace() ActionSpace {
	return ActionSpace{Low: []float64{-0.5, -0.5}, High: []float64{0.5, 0.5}}
}

// DontWaitSpace corrects paddle tilt (a0) and sets the spin angle (a1) outright.
func DontWaitSpace() ActionSpace {
	return ActionSpace{Low: []float64{-0.5, 0}, High: []float64{0.5, math.Pi}}
}
