package ddpg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"paddlerl/internal/model"
	"paddlerl/internal/nn"
	"paddlerl/internal/replay"
	"paddlerl/internal/storage"
)

const (
	DefaultGamma    = 0.99
	DefaultTau      = 0.01
	DefaultActorLR  = 1e-4
	DefaultCriticLR = 1e-3

	// Output layers start near zero so early actions sit at the space centre.
	outputInitScale = 3e-3
)

var DefaultHidden = []int{200, 100, 50}

var ErrEmptyBatch = errors.New("ddpg update needs at least one transition")

// Noise perturbs inferred actions for exploration.
type Noise interface {
	Sample() []float64
}

type Config struct {
	Name      string
	StateSize int
	Space     ActionSpace
	Hidden    []int
	Gamma     float64
	Tau       float64
	ActorLR   float64
	CriticLR  float64
	Seed      int64

	// RunID tags checkpoints with the training run that wrote them.
	RunID string
}

// DefaultConfig returns the hyperparameters used for both paddle agents.
func DefaultConfig(name string, stateSize int, space ActionSpace) Config {
	return Config{
		Name:      name,
		StateSize: stateSize,
		Space:     space,
		Hidden:    append([]int(nil), DefaultHidden...),
		Gamma:     DefaultGamma,
		Tau:       DefaultTau,
		ActorLR:   DefaultActorLR,
		CriticLR:  DefaultCriticLR,
		Seed:      1,
	}
}

type UpdateStats struct {
	CriticLoss float64
	ActorLoss  float64
}

// Agent is an actor-critic pair with target copies. The actor emits actions
// in [-1, 1] which are mapped onto the action space; the critic scores states
// together with unit-scaled actions.
type Agent struct {
	cfg   Config
	store storage.Store
	log   logrus.FieldLogger

	actor        *nn.MLP
	critic       *nn.MLP
	actorTarget  *nn.MLP
	criticTarget *nn.MLP
	actorOpt     *nn.Adam
	criticOpt    *nn.Adam

	actorGrads  *nn.Gradients
	criticGrads *nn.Gradients
	updates     int
}

// New builds an agent. store may be nil when checkpoints are not needed.
func New(cfg Config, store storage.Store, log logrus.FieldLogger) (*Agent, error) {
	if cfg.Name == "" {
		return nil, errors.New("agent name is required")
	}
	if cfg.StateSize <= 0 {
		return nil, fmt.Errorf("agent %s: state size must be positive, got %d", cfg.Name, cfg.StateSize)
	}
	if err := cfg.Space.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
	}
	if cfg.Tau <= 0 || cfg.Tau > 1 {
		return nil, fmt.Errorf("agent %s: tau must be in (0, 1], got %v", cfg.Name, cfg.Tau)
	}
	if cfg.Gamma < 0 || cfg.Gamma > 1 {
		return nil, fmt.Errorf("agent %s: gamma must be in [0, 1], got %v", cfg.Name, cfg.Gamma)
	}
	if len(cfg.Hidden) == 0 {
		cfg.Hidden = append([]int(nil), DefaultHidden...)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	actor, err := nn.NewMLP(nn.MLPConfig{
		Sizes:            sizes(cfg.StateSize, cfg.Hidden, cfg.Space.Dim()),
		HiddenActivation: "relu",
		OutputActivation: "tanh",
		OutputInitScale:  outputInitScale,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("agent %s actor: %w", cfg.Name, err)
	}
	critic, err := nn.NewMLP(nn.MLPConfig{
		Sizes:            sizes(cfg.StateSize+cfg.Space.Dim(), cfg.Hidden, 1),
		HiddenActivation: "relu",
		OutputActivation: "identity",
		OutputInitScale:  outputInitScale,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("agent %s critic: %w", cfg.Name, err)
	}

	return &Agent{
		cfg:          cfg,
		store:        store,
		log:          log.WithField("agent", cfg.Name),
		actor:        actor,
		critic:       critic,
		actorTarget:  actor.Clone(),
		criticTarget: critic.Clone(),
		actorOpt:     nn.NewAdam(actor, cfg.ActorLR),
		criticOpt:    nn.NewAdam(critic, cfg.CriticLR),
		actorGrads:   nn.NewGradients(actor),
		criticGrads:  nn.NewGradients(critic),
	}, nil
}

func sizes(in int, hidden []int, out int) []int {
	s := make([]int, 0, len(hidden)+2)
	s = append(s, in)
	s = append(s, hidden...)
	return append(s, out)
}

func (a *Agent) Name() string { return a.cfg.Name }

func (a *Agent) Space() ActionSpace { return a.cfg.Space }

// Updates counts completed Update calls.
func (a *Agent) Updates() int { return a.updates }

func (a *Agent) Actor() *nn.MLP { return a.actor }

func (a *Agent) Critic() *nn.MLP { return a.critic }

func (a *Agent) ActorTarget() *nn.MLP { return a.actorTarget }

func (a *Agent) CriticTarget() *nn.MLP { return a.criticTarget }

// Infer returns the actor's action for state, perturbed by noise when noise is
// non-nil, clipped to the action space.
func (a *Agent) Infer(state []float64, noise Noise) ([]float64, error) {
	u, err := a.actor.Predict(state)
	if err != nil {
		return nil, fmt.Errorf("agent %s infer: %w", a.cfg.Name, err)
	}
	action := a.cfg.Space.fromUnit(u)
	if noise != nil {
		n := noise.Sample()
		if len(n) != len(action) {
			return nil, fmt.Errorf("agent %s infer: noise has %d dims, action has %d", a.cfg.Name, len(n), len(action))
		}
		for i := range action {
			action[i] += n[i]
		}
	}
	a.cfg.Space.Clip(action)
	return action, nil
}

// Update runs one critic step, one actor step and a soft target update over
// batch.
func (a *Agent) Update(batch []replay.Transition) (UpdateStats, error) {
	if len(batch) == 0 {
		return UpdateStats{}, ErrEmptyBatch
	}
	n := float64(len(batch))
	var stats UpdateStats

	a.criticGrads.Zero()
	for _, t := range batch {
		nextU, err := a.actorTarget.Predict(t.NextState)
		if err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s target actor: %w", a.cfg.Name, err)
		}
		nextQ, err := a.criticTarget.Predict(concat(t.NextState, nextU))
		if err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s target critic: %w", a.cfg.Name, err)
		}
		y := t.Reward + a.cfg.Gamma*t.Mask()*nextQ[0]

		q, cache, err := a.critic.Forward(concat(t.State, a.cfg.Space.toUnit(t.Action)))
		if err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s critic: %w", a.cfg.Name, err)
		}
		diff := q[0] - y
		stats.CriticLoss += diff * diff / n
		if _, err := a.critic.Backward(cache, []float64{2 * diff / n}, a.criticGrads); err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s critic backward: %w", a.cfg.Name, err)
		}
	}
	if err := a.criticOpt.Step(a.critic, a.criticGrads); err != nil {
		return UpdateStats{}, fmt.Errorf("agent %s critic step: %w", a.cfg.Name, err)
	}

	a.actorGrads.Zero()
	for _, t := range batch {
		u, actorCache, err := a.actor.Forward(t.State)
		if err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s actor: %w", a.cfg.Name, err)
		}
		q, criticCache, err := a.critic.Forward(concat(t.State, u))
		if err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s critic: %w", a.cfg.Name, err)
		}
		stats.ActorLoss -= q[0] / n

		dIn, err := a.critic.Backward(criticCache, []float64{-1 / n}, nil)
		if err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s critic backward: %w", a.cfg.Name, err)
		}
		if _, err := a.actor.Backward(actorCache, dIn[len(t.State):], a.actorGrads); err != nil {
			return UpdateStats{}, fmt.Errorf("agent %s actor backward: %w", a.cfg.Name, err)
		}
	}
	if err := a.actorOpt.Step(a.actor, a.actorGrads); err != nil {
		return UpdateStats{}, fmt.Errorf("agent %s actor step: %w", a.cfg.Name, err)
	}

	if err := a.actorTarget.SoftUpdate(a.actor, a.cfg.Tau); err != nil {
		return UpdateStats{}, err
	}
	if err := a.criticTarget.SoftUpdate(a.critic, a.cfg.Tau); err != nil {
		return UpdateStats{}, err
	}
	a.updates++
	return stats, nil
}

func concat(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// HardSync copies the online networks onto the targets.
func (a *Agent) HardSync() error {
	if err := a.actorTarget.CopyFrom(a.actor); err != nil {
		return fmt.Errorf("agent %s hard sync actor: %w", a.cfg.Name, err)
	}
	if err := a.criticTarget.CopyFrom(a.critic); err != nil {
		return fmt.Errorf("agent %s hard sync critic: %w", a.cfg.Name, err)
	}
	a.log.Debug("targets hard-synced")
	return nil
}

// Checkpoint persists the online networks under (name, epoch).
func (a *Agent) Checkpoint(ctx context.Context, epoch int) error {
	if a.store == nil {
		return fmt.Errorf("agent %s has no checkpoint store", a.cfg.Name)
	}
	cp := model.Checkpoint{
		VersionedRecord: storage.Versioned(),
		Agent:           a.cfg.Name,
		Epoch:           epoch,
		RunID:           a.cfg.RunID,
		SavedAt:         time.Now().UTC(),
		Actor:           a.actor.Params(),
		Critic:          a.critic.Params(),
	}
	if err := a.store.SaveCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("agent %s checkpoint %d: %w", a.cfg.Name, epoch, err)
	}
	a.log.WithField("epoch", epoch).Info("checkpoint saved")
	return nil
}

// LoadCheckpoint restores the online networks from epoch, or from the newest
// checkpoint when epoch < 0, and hard-syncs the targets. It returns the epoch
// loaded and false when no matching checkpoint exists.
func (a *Agent) LoadCheckpoint(ctx context.Context, epoch int) (int, bool, error) {
	if a.store == nil {
		return 0, false, fmt.Errorf("agent %s has no checkpoint store", a.cfg.Name)
	}
	var (
		cp  model.Checkpoint
		ok  bool
		err error
	)
	if epoch < 0 {
		cp, ok, err = a.store.LatestCheckpoint(ctx, a.cfg.Name)
	} else {
		cp, ok, err = a.store.GetCheckpoint(ctx, a.cfg.Name, epoch)
	}
	if err != nil {
		return 0, false, fmt.Errorf("agent %s load checkpoint: %w", a.cfg.Name, err)
	}
	if !ok {
		return 0, false, nil
	}
	if err := a.actor.SetParams(cp.Actor); err != nil {
		return 0, false, fmt.Errorf("agent %s restore actor: %w", a.cfg.Name, err)
	}
	if err := a.critic.SetParams(cp.Critic); err != nil {
		return 0, false, fmt.Errorf("agent %s restore critic: %w", a.cfg.Name, err)
	}
	if err := a.HardSync(); err != nil {
		return 0, false, err
	}
	a.log.WithField("epoch", cp.Epoch).Info("checkpoint loaded")
	return cp.Epoch, true, nil
}
