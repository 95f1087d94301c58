package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LayerParams is the serialisable form of a Layer.
type LayerParams struct {
	Inputs     int       `json:"inputs"`
	Outputs    int       `json:"outputs"`
	Activation string    `json:"activation"`
	Weights    []float64 `json:"weights"`
	Bias       []float64 `json:"bias"`
}

type Params struct {
	Layers []LayerParams `json:"layers"`
}

func (m *MLP) Params() Params {
	p := Params{Layers: make([]LayerParams, len(m.layers))}
	for i, l := range m.layers {
		p.Layers[i] = LayerParams{
			Inputs:     l.Inputs(),
			Outputs:    l.Outputs(),
			Activation: l.Activation,
			Weights:    append([]float64(nil), l.W.RawMatrix().Data...),
			Bias:       append([]float64(nil), l.B.RawVector().Data...),
		}
	}
	return p
}

func NewMLPFromParams(p Params) (*MLP, error) {
	if len(p.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrShapeMismatch)
	}
	m := &MLP{layers: make([]*Layer, len(p.Layers))}
	for i, lp := range p.Layers {
		if lp.Inputs <= 0 || lp.Outputs <= 0 || len(lp.Weights) != lp.Inputs*lp.Outputs || len(lp.Bias) != lp.Outputs {
			return nil, fmt.Errorf("%w: layer %d params are inconsistent", ErrShapeMismatch, i)
		}
		if i > 0 && p.Layers[i-1].Outputs != lp.Inputs {
			return nil, fmt.Errorf("%w: layer %d expects %d inputs, previous emits %d", ErrShapeMismatch, i, lp.Inputs, p.Layers[i-1].Outputs)
		}
		act, err := GetActivation(lp.Activation)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		m.layers[i] = &Layer{
			W:          mat.NewDense(lp.Outputs, lp.Inputs, append([]float64(nil), lp.Weights...)),
			B:          mat.NewVecDense(lp.Outputs, append([]float64(nil), lp.Bias...)),
			Activation: lp.Activation,
			act:        act,
		}
	}
	return m, nil
}

// SetParams loads p into m; shapes must match.
func (m *MLP) SetParams(p Params) error {
	src, err := NewMLPFromParams(p)
	if err != nil {
		return err
	}
	return m.CopyFrom(src)
}
