package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMLP(t *testing.T, seed int64, sizes ...int) *MLP {
	t.Helper()
	m, err := NewMLP(MLPConfig{Sizes: sizes, HiddenActivation: "tanh"}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return m
}

func TestNewMLPValidation(t *testing.T) {
	_, err := NewMLP(MLPConfig{Sizes: []int{3}}, nil)
	require.Error(t, err)

	_, err = NewMLP(MLPConfig{Sizes: []int{3, 0, 1}}, nil)
	require.Error(t, err)

	_, err = NewMLP(MLPConfig{Sizes: []int{3, 1}, OutputActivation: "nope"}, nil)
	require.True(t, errors.Is(err, ErrActivationNotFound))
}

func TestForwardShapes(t *testing.T) {
	m := newTestMLP(t, 1, 6, 8, 4, 2)
	assert.Equal(t, 6, m.InputSize())
	assert.Equal(t, 2, m.OutputSize())

	out, err := m.Predict([]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = m.Predict([]float64{1})
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestOutputInitScaleBoundsLastLayer(t *testing.T) {
	m, err := NewMLP(MLPConfig{Sizes: []int{4, 16, 2}, OutputInitScale: 3e-3}, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	last := m.Layers()[1]
	for _, w := range last.W.RawMatrix().Data {
		assert.LessOrEqual(t, math.Abs(w), 3e-3)
	}
}

// Compares analytic gradients against central differences of
// loss = sum(output * coeff).
func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	m := newTestMLP(t, 3, 3, 5, 2)
	x := []float64{0.2, -0.4, 0.7}
	coeff := []float64{1.5, -0.5}

	loss := func(net *MLP, in []float64) float64 {
		out, err := net.Predict(in)
		require.NoError(t, err)
		return out[0]*coeff[0] + out[1]*coeff[1]
	}

	_, cache, err := m.Forward(x)
	require.NoError(t, err)
	grads := NewGradients(m)
	dIn, err := m.Backward(cache, coeff, grads)
	require.NoError(t, err)

	const h = 1e-6
	for li, l := range m.Layers() {
		data := l.W.RawMatrix().Data
		for _, idx := range []int{0, len(data) / 2, len(data) - 1} {
			orig := data[idx]
			data[idx] = orig + h
			up := loss(m, x)
			data[idx] = orig - h
			down := loss(m, x)
			data[idx] = orig
			numeric := (up - down) / (2 * h)
			assert.InDelta(t, numeric, grads.W[li].RawMatrix().Data[idx], 1e-6, "layer %d weight %d", li, idx)
		}
		bias := l.B.RawVector().Data
		orig := bias[0]
		bias[0] = orig + h
		up := loss(m, x)
		bias[0] = orig - h
		down := loss(m, x)
		bias[0] = orig
		assert.InDelta(t, (up-down)/(2*h), grads.B[li].AtVec(0), 1e-6, "layer %d bias", li)
	}

	for i := range x {
		shifted := append([]float64(nil), x...)
		shifted[i] += h
		up := loss(m, shifted)
		shifted[i] -= 2 * h
		down := loss(m, shifted)
		assert.InDelta(t, (up-down)/(2*h), dIn[i], 1e-6, "input %d", i)
	}
}

func TestBackwardRejectsBadGradient(t *testing.T) {
	m := newTestMLP(t, 4, 2, 3, 1)
	_, cache, err := m.Forward([]float64{1, 2})
	require.NoError(t, err)
	_, err = m.Backward(cache, []float64{1, 2}, nil)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestSoftUpdateBlendsExactly(t *testing.T) {
	online := newTestMLP(t, 5, 4, 6, 2)
	target := newTestMLP(t, 6, 4, 6, 2)
	old := target.Clone()

	const tau = 0.01
	require.NoError(t, target.SoftUpdate(online, tau))

	for li, l := range target.Layers() {
		got := l.W.RawMatrix().Data
		src := online.Layers()[li].W.RawMatrix().Data
		prev := old.Layers()[li].W.RawMatrix().Data
		for i := range got {
			assert.Equal(t, tau*src[i]+(1-tau)*prev[i], got[i])
		}
	}
}

func TestCopyFromIsBitExactAndIndependent(t *testing.T) {
	online := newTestMLP(t, 7, 4, 6, 2)
	target := newTestMLP(t, 8, 4, 6, 2)

	require.NoError(t, target.CopyFrom(online))
	assert.Equal(t, online.Params(), target.Params())

	online.Layers()[0].W.Set(0, 0, 42)
	assert.NotEqual(t, 42.0, target.Layers()[0].W.At(0, 0))
}

func TestCopyFromShapeMismatch(t *testing.T) {
	a := newTestMLP(t, 1, 4, 6, 2)
	b := newTestMLP(t, 1, 4, 5, 2)
	require.True(t, errors.Is(a.CopyFrom(b), ErrShapeMismatch))
	require.True(t, errors.Is(a.SoftUpdate(b, 0.5), ErrShapeMismatch))
}

func TestParamsRoundTrip(t *testing.T) {
	m := newTestMLP(t, 9, 3, 4, 1)
	restored, err := NewMLPFromParams(m.Params())
	require.NoError(t, err)

	x := []float64{0.1, 0.2, 0.3}
	want, err := m.Predict(x)
	require.NoError(t, err)
	got, err := restored.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	bad := m.Params()
	bad.Layers[0].Bias = bad.Layers[0].Bias[:1]
	_, err = NewMLPFromParams(bad)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestAdamFitsLinearTarget(t *testing.T) {
	m, err := NewMLP(MLPConfig{Sizes: []int{1, 8, 1}, HiddenActivation: "tanh"}, rand.New(rand.NewSource(10)))
	require.NoError(t, err)
	opt := NewAdam(m, 1e-2)
	grads := NewGradients(m)
	inputs := []float64{-1, -0.5, 0, 0.5, 1}

	mse := func() float64 {
		sum := 0.0
		for _, x := range inputs {
			out, err := m.Predict([]float64{x})
			require.NoError(t, err)
			d := out[0] - 0.5*x
			sum += d * d
		}
		return sum / float64(len(inputs))
	}

	before := mse()
	for epoch := 0; epoch < 300; epoch++ {
		grads.Zero()
		for _, x := range inputs {
			out, cache, err := m.Forward([]float64{x})
			require.NoError(t, err)
			_, err = m.Backward(cache, []float64{2 * (out[0] - 0.5*x) / float64(len(inputs))}, grads)
			require.NoError(t, err)
		}
		require.NoError(t, opt.Step(m, grads))
	}
	assert.Less(t, mse(), before/10)
	assert.Equal(t, 300, opt.Steps())
}
