package noise

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesDimensions(t *testing.T) {
	_, err := NewOrnsteinUhlenbeck(Config{}, nil)
	require.Error(t, err)

	_, err = NewOrnsteinUhlenbeck(Config{Mu: []float64{0, 0}, Sigma: []float64{1}}, nil)
	require.Error(t, err)

	_, err = NewOrnsteinUhlenbeck(Config{Mu: []float64{0}, Sigma: []float64{1}, X0: []float64{1, 2}}, nil)
	require.Error(t, err)
}

func TestZeroSigmaDecaysTowardMu(t *testing.T) {
	n, err := NewOrnsteinUhlenbeck(Config{
		Mu:    []float64{1},
		Sigma: []float64{0},
		X0:    []float64{0},
	}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	first := n.Sample()
	assert.InDelta(t, DefaultTheta*DefaultDt, first[0], 1e-12)

	second := n.Sample()
	assert.Greater(t, second[0], first[0])
	assert.Less(t, second[0], 1.0)
}

func TestSamplesAreTemporallyCorrelated(t *testing.T) {
	n, err := Isotropic(2, 0.4, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Equal(t, 2, n.Dim())

	prev := n.Sample()
	for i := 0; i < 50; i++ {
		cur := n.Sample()
		for d := range cur {
			// sigma*sqrt(dt) = 0.04; a jump of 0.5 would be > 12 standard deviations.
			assert.Less(t, abs(cur[d]-prev[d]), 0.5)
		}
		prev = cur
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	n, err := NewOrnsteinUhlenbeck(Config{Mu: []float64{0}, Sigma: []float64{0}, X0: []float64{2}}, nil)
	require.NoError(t, err)

	before := n.Sample()
	n.Sample()
	n.Reset()
	after := n.Sample()
	assert.Equal(t, before, after)
}

func TestSeededProcessesAgree(t *testing.T) {
	a, err := Isotropic(2, 0.4, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	b, err := Isotropic(2, 0.4, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
