package noise

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	DefaultTheta = 0.15
	DefaultDt    = 1e-2
)

// OrnsteinUhlenbeck generates temporally correlated exploration noise:
//
//	x' = x + theta*(mu - x)*dt + sigma*sqrt(dt)*N(0, 1)
type OrnsteinUhlenbeck struct {
	mu    []float64
	sigma []float64
	theta float64
	dt    float64
	x0    []float64

	rng  *rand.Rand
	prev []float64
}

type Config struct {
	Mu    []float64
	Sigma []float64
	Theta float64
	Dt    float64
	// X0 is the initial state; nil starts at zero.
	X0 []float64
}

func NewOrnsteinUhlenbeck(cfg Config, rng *rand.Rand) (*OrnsteinUhlenbeck, error) {
	if len(cfg.Mu) == 0 {
		return nil, fmt.Errorf("ou noise: mu must not be empty")
	}
	if len(cfg.Sigma) != len(cfg.Mu) {
		return nil, fmt.Errorf("ou noise: sigma has %d entries, mu has %d", len(cfg.Sigma), len(cfg.Mu))
	}
	if cfg.X0 != nil && len(cfg.X0) != len(cfg.Mu) {
		return nil, fmt.Errorf("ou noise: x0 has %d entries, mu has %d", len(cfg.X0), len(cfg.Mu))
	}
	if cfg.Theta == 0 {
		cfg.Theta = DefaultTheta
	}
	if cfg.Dt == 0 {
		cfg.Dt = DefaultDt
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	n := &OrnsteinUhlenbeck{
		mu:    append([]float64(nil), cfg.Mu...),
		sigma: append([]float64(nil), cfg.Sigma...),
		theta: cfg.Theta,
		dt:    cfg.Dt,
		rng:   rng,
	}
	if cfg.X0 != nil {
		n.x0 = append([]float64(nil), cfg.X0...)
	}
	n.Reset()
	return n, nil
}

// Isotropic builds a zero-mean process with the same sigma on every dimension.
func Isotropic(dim int, sigma float64, rng *rand.Rand) (*OrnsteinUhlenbeck, error) {
	mu := make([]float64, dim)
	sig := make([]float64, dim)
	for i := range sig {
		sig[i] = sigma
	}
	return NewOrnsteinUhlenbeck(Config{Mu: mu, Sigma: sig}, rng)
}

// Sample advances the process one step and returns the new state.
func (n *OrnsteinUhlenbeck) Sample() []float64 {
	sqrtDt := math.Sqrt(n.dt)
	out := make([]float64, len(n.mu))
	for i := range out {
		out[i] = n.prev[i] + n.theta*(n.mu[i]-n.prev[i])*n.dt + n.sigma[i]*sqrtDt*n.rng.NormFloat64()
	}
	n.prev = out
	return append([]float64(nil), out...)
}

func (n *OrnsteinUhlenbeck) Reset() {
	if n.x0 != nil {
		n.prev = append([]float64(nil), n.x0...)
		return
	}
	n.prev = make([]float64, len(n.mu))
}

func (n *OrnsteinUhlenbeck) Dim() int { return len(n.mu) }
