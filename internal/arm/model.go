package arm

import (
	"fmt"
	"os"

	"paddlerl/internal/nn"
	"paddlerl/internal/storage"
)

// Model maps a target paddle height and table depth onto the four arm joints.
type Model interface {
	Joints(height, depth float64) ([4]float64, error)
}

type ModelFunc func(height, depth float64) ([4]float64, error)

func (f ModelFunc) Joints(height, depth float64) ([4]float64, error) {
	return f(height, depth)
}

// MLPModel runs the supervised positioning network. Inputs are (depth, height).
type MLPModel struct {
	net *nn.MLP
}

func NewMLPModel(net *nn.MLP) (*MLPModel, error) {
	if net.InputSize() != 2 || net.OutputSize() != 4 {
		return nil, fmt.Errorf("arm network must map 2 inputs to 4 outputs, got %d->%d", net.InputSize(), net.OutputSize())
	}
	return &MLPModel{net: net}, nil
}

// LoadMLPModel reads weights written with storage.EncodeArmWeights.
func LoadMLPModel(path string) (*MLPModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arm weights: %w", err)
	}
	weights, err := storage.DecodeArmWeights(data)
	if err != nil {
		return nil, fmt.Errorf("decode arm weights %s: %w", path, err)
	}
	net, err := nn.NewMLPFromParams(weights.Network)
	if err != nil {
		return nil, fmt.Errorf("build arm network: %w", err)
	}
	return NewMLPModel(net)
}

func (m *MLPModel) Joints(height, depth float64) ([4]float64, error) {
	out, err := m.net.Predict([]float64{depth, height})
	if err != nil {
		return [4]float64{}, err
	}
	return [4]float64{out[0], out[1], out[2], out[3]}, nil
}
