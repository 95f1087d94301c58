package replay

import "github.com/google/uuid"

// Transition is one recorded (state, action, done, next state, reward) step.
// Slices are copied on construction and on every read out of a Buffer.
type Transition struct {
	ID        uuid.UUID
	State     []float64
	Action    []float64
	Done      bool
	NextState []float64
	Reward    float64
}

func NewTransition(state, action []float64, done bool, next []float64, reward float64) Transition {
	return Transition{
		ID:        uuid.New(),
		State:     append([]float64(nil), state...),
		Action:    append([]float64(nil), action...),
		Done:      done,
		NextState: append([]float64(nil), next...),
		Reward:    reward,
	}
}

func (t Transition) clone() Transition {
	return Transition{
		ID:        t.ID,
		State:     append([]float64(nil), t.State...),
		Action:    append([]float64(nil), t.Action...),
		Done:      t.Done,
		NextState: append([]float64(nil), t.NextState...),
		Reward:    t.Reward,
	}
}

// Mask is 0 for terminal transitions and 1 otherwise.
func (t Transition) Mask() float64 {
	if t.Done {
		return 0
	}
	return 1
}
