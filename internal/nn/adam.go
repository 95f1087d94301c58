package nn

import "math"

const (
	defaultBeta1   = 0.9
	defaultBeta2   = 0.999
	defaultEpsilon = 1e-8
)

// Adam minimises a loss given accumulated gradients.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	step int
	mW   [][]float64
	vW   [][]float64
	mB   [][]float64
	vB   [][]float64
}

func NewAdam(m *MLP, lr float64) *Adam {
	a := &Adam{
		LR:      lr,
		Beta1:   defaultBeta1,
		Beta2:   defaultBeta2,
		Epsilon: defaultEpsilon,
	}
	for _, l := range m.layers {
		n := l.Inputs() * l.Outputs()
		a.mW = append(a.mW, make([]float64, n))
		a.vW = append(a.vW, make([]float64, n))
		a.mB = append(a.mB, make([]float64, l.Outputs()))
		a.vB = append(a.vB, make([]float64, l.Outputs()))
	}
	return a
}

// Step applies one descent step to m's parameters.
func (a *Adam) Step(m *MLP, g *Gradients) error {
	if len(g.W) != len(m.layers) || len(a.mW) != len(m.layers) {
		return ErrShapeMismatch
	}
	a.step++
	c1 := 1 - math.Pow(a.Beta1, float64(a.step))
	c2 := 1 - math.Pow(a.Beta2, float64(a.step))
	for i, l := range m.layers {
		a.apply(l.W.RawMatrix().Data, g.W[i].RawMatrix().Data, a.mW[i], a.vW[i], c1, c2)
		a.apply(l.B.RawVector().Data, g.B[i].RawVector().Data, a.mB[i], a.vB[i], c1, c2)
	}
	return nil
}

func (a *Adam) apply(params, grads, m, v []float64, c1, c2 float64) {
	for i := range params {
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*grads[i]
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*grads[i]*grads[i]
		params[i] -= a.LR * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.Epsilon)
	}
}

func (a *Adam) Steps() int { return a.step }
