package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var ErrShapeMismatch = errors.New("network shape mismatch")

// Layer is a dense layer computing act(W·x + b).
type Layer struct {
	W          *mat.Dense
	B          *mat.VecDense
	Activation string

	act Activation
}

func (l *Layer) Inputs() int {
	_, c := l.W.Dims()
	return c
}

func (l *Layer) Outputs() int {
	r, _ := l.W.Dims()
	return r
}

// MLP is a fully connected feed-forward network.
type MLP struct {
	layers []*Layer
}

type MLPConfig struct {
	// Sizes lists the layer widths, input first and output last.
	Sizes            []int
	HiddenActivation string
	OutputActivation string
	// OutputInitScale bounds the uniform init of the last layer; 0 uses fan-in.
	OutputInitScale float64
}

// NewMLP initialises weights uniformly in ±1/sqrt(fan-in).
func NewMLP(cfg MLPConfig, rng *rand.Rand) (*MLP, error) {
	if len(cfg.Sizes) < 2 {
		return nil, fmt.Errorf("mlp needs at least input and output sizes, got %v", cfg.Sizes)
	}
	if cfg.HiddenActivation == "" {
		cfg.HiddenActivation = "relu"
	}
	if cfg.OutputActivation == "" {
		cfg.OutputActivation = "identity"
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	m := &MLP{layers: make([]*Layer, 0, len(cfg.Sizes)-1)}
	for i := 0; i < len(cfg.Sizes)-1; i++ {
		in, out := cfg.Sizes[i], cfg.Sizes[i+1]
		if in <= 0 || out <= 0 {
			return nil, fmt.Errorf("mlp layer %d has non-positive size %dx%d", i, out, in)
		}
		last := i == len(cfg.Sizes)-2
		actName := cfg.HiddenActivation
		bound := 1 / math.Sqrt(float64(in))
		if last {
			actName = cfg.OutputActivation
			if cfg.OutputInitScale > 0 {
				bound = cfg.OutputInitScale
			}
		}
		act, err := GetActivation(actName)
		if err != nil {
			return nil, fmt.Errorf("mlp layer %d: %w", i, err)
		}

		w := make([]float64, out*in)
		for j := range w {
			w[j] = (rng.Float64()*2 - 1) * bound
		}
		b := make([]float64, out)
		for j := range b {
			b[j] = (rng.Float64()*2 - 1) * bound
		}
		m.layers = append(m.layers, &Layer{
			W:          mat.NewDense(out, in, w),
			B:          mat.NewVecDense(out, b),
			Activation: actName,
			act:        act,
		})
	}
	return m, nil
}

func (m *MLP) Layers() []*Layer { return m.layers }

func (m *MLP) InputSize() int { return m.layers[0].Inputs() }

func (m *MLP) OutputSize() int { return m.layers[len(m.layers)-1].Outputs() }

// Cache keeps the per-layer inputs and pre-activations of one forward pass.
type Cache struct {
	inputs []*mat.VecDense
	pre    []*mat.VecDense
}

func (m *MLP) Forward(x []float64) ([]float64, *Cache, error) {
	if len(x) != m.InputSize() {
		return nil, nil, fmt.Errorf("%w: input has %d values, network expects %d", ErrShapeMismatch, len(x), m.InputSize())
	}
	cache := &Cache{
		inputs: make([]*mat.VecDense, len(m.layers)),
		pre:    make([]*mat.VecDense, len(m.layers)),
	}
	cur := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for i, l := range m.layers {
		cache.inputs[i] = cur
		z := mat.NewVecDense(l.Outputs(), nil)
		z.MulVec(l.W, cur)
		z.AddVec(z, l.B)
		cache.pre[i] = z

		next := mat.NewVecDense(l.Outputs(), nil)
		for j := 0; j < z.Len(); j++ {
			next.SetVec(j, l.act.Func(z.AtVec(j)))
		}
		cur = next
	}
	return append([]float64(nil), cur.RawVector().Data...), cache, nil
}

// Predict is Forward without keeping the cache.
func (m *MLP) Predict(x []float64) ([]float64, error) {
	out, _, err := m.Forward(x)
	return out, err
}

// Backward accumulates parameter gradients of a scalar loss into grads given
// dLoss/dOutput, and returns dLoss/dInput.
func (m *MLP) Backward(cache *Cache, gradOut []float64, grads *Gradients) ([]float64, error) {
	if len(gradOut) != m.OutputSize() {
		return nil, fmt.Errorf("%w: output gradient has %d values, network emits %d", ErrShapeMismatch, len(gradOut), m.OutputSize())
	}
	if cache == nil || len(cache.pre) != len(m.layers) {
		return nil, errors.New("backward requires the cache of a forward pass on this network")
	}

	upstream := mat.NewVecDense(len(gradOut), append([]float64(nil), gradOut...))
	for i := len(m.layers) - 1; i >= 0; i-- {
		l := m.layers[i]
		delta := mat.NewVecDense(l.Outputs(), nil)
		for j := 0; j < delta.Len(); j++ {
			delta.SetVec(j, upstream.AtVec(j)*l.act.Deriv(cache.pre[i].AtVec(j)))
		}

		if grads != nil {
			var outer mat.Dense
			outer.Outer(1, delta, cache.inputs[i])
			grads.W[i].Add(grads.W[i], &outer)
			grads.B[i].AddVec(grads.B[i], delta)
		}

		down := mat.NewVecDense(l.Inputs(), nil)
		down.MulVec(l.W.T(), delta)
		upstream = down
	}
	return append([]float64(nil), upstream.RawVector().Data...), nil
}

// Clone returns an independent deep copy.
func (m *MLP) Clone() *MLP {
	out := &MLP{layers: make([]*Layer, len(m.layers))}
	for i, l := range m.layers {
		out.layers[i] = &Layer{
			W:          mat.DenseCopyOf(l.W),
			B:          mat.VecDenseCopyOf(l.B),
			Activation: l.Activation,
			act:        l.act,
		}
	}
	return out
}

// CopyFrom overwrites every parameter with src's, bit for bit.
func (m *MLP) CopyFrom(src *MLP) error {
	if err := m.sameShape(src); err != nil {
		return err
	}
	for i, l := range m.layers {
		l.W.Copy(src.layers[i].W)
		l.B.CopyVec(src.layers[i].B)
	}
	return nil
}

// SoftUpdate blends every parameter toward src: p = tau*src + (1-tau)*p.
func (m *MLP) SoftUpdate(src *MLP, tau float64) error {
	if err := m.sameShape(src); err != nil {
		return err
	}
	for i, l := range m.layers {
		blend(l.W.RawMatrix().Data, src.layers[i].W.RawMatrix().Data, tau)
		blend(l.B.RawVector().Data, src.layers[i].B.RawVector().Data, tau)
	}
	return nil
}

func blend(dst, src []float64, tau float64) {
	for i := range dst {
		dst[i] = tau*src[i] + (1-tau)*dst[i]
	}
}

func (m *MLP) sameShape(other *MLP) error {
	if other == nil || len(other.layers) != len(m.layers) {
		return fmt.Errorf("%w: layer count differs", ErrShapeMismatch)
	}
	for i, l := range m.layers {
		o := other.layers[i]
		if l.Inputs() != o.Inputs() || l.Outputs() != o.Outputs() {
			return fmt.Errorf("%w: layer %d is %dx%d, other is %dx%d", ErrShapeMismatch, i, l.Outputs(), l.Inputs(), o.Outputs(), o.Inputs())
		}
	}
	return nil
}

// Gradients mirrors an MLP's parameter shapes.
type Gradients struct {
	W []*mat.Dense
	B []*mat.VecDense
}

func NewGradients(m *MLP) *Gradients {
	g := &Gradients{
		W: make([]*mat.Dense, len(m.layers)),
		B: make([]*mat.VecDense, len(m.layers)),
	}
	for i, l := range m.layers {
		g.W[i] = mat.NewDense(l.Outputs(), l.Inputs(), nil)
		g.B[i] = mat.NewVecDense(l.Outputs(), nil)
	}
	return g
}

func (g *Gradients) Zero() {
	for i := range g.W {
		g.W[i].Zero()
		g.B[i].Zero()
	}
}

func (g *Gradients) Scale(f float64) {
	for i := range g.W {
		g.W[i].Scale(f, g.W[i])
		g.B[i].ScaleVec(f, g.B[i])
	}
}
