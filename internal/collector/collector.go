package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"paddlerl/internal/arm"
	"paddlerl/internal/ddpg"
	"paddlerl/internal/metrics"
	"paddlerl/internal/phase"
	"paddlerl/internal/replay"
	"paddlerl/internal/reward"
	"paddlerl/internal/scape"
	"paddlerl/internal/state"
)

const (
	DefaultActivationRadius = 0.3
	DefaultDontWaitRadius   = 0.2
	DefaultSmashRadius      = 0.3
)

var ErrScoreTimeout = errors.New("timed out waiting for the point to be scored")

type Config struct {
	// ActivationRadius is the paddle-ball distance at which a committed stance
	// asks its agent for an action.
	ActivationRadius float64
	// DontWaitRadius gates the don't-wait strike and bounds its contact wait.
	DontWaitRadius float64
	// SmashRadius bounds the smash contact wait.
	SmashRadius float64
	// ScoreTimeout bounds the wait for the point to be awarded; 0 waits forever.
	ScoreTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ActivationRadius: DefaultActivationRadius,
		DontWaitRadius:   DefaultDontWaitRadius,
		SmashRadius:      DefaultSmashRadius,
	}
}

// Policy picks an action for a feature vector.
type Policy interface {
	Infer(features []float64, noise ddpg.Noise) ([]float64, error)
}

// Slot is one agent's collection pipeline.
type Slot struct {
	Name   string
	Mode   phase.Mode
	Policy Policy
	Noise  ddpg.Noise
	Buffer *replay.Buffer
	// Filled counts transitions pushed in the current collection phase.
	Filled int
}

func (s *Slot) Full() bool { return s.Filled >= s.Buffer.Cap() }

// Result describes one recorded strike. Point is the last state read from the
// simulator.
type Result struct {
	Transition replay.Transition
	Joints     arm.Joints
	Pre        state.Vector
	Contact    state.Vector
	Point      state.Vector
}

type Collector struct {
	cfg     Config
	reward  reward.Func
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// New builds a collector. A nil reward function uses reward.Paddle; m may be
// nil.
func New(cfg Config, fn reward.Func, log logrus.FieldLogger, m *metrics.Metrics) *Collector {
	if fn == nil {
		fn = reward.Paddle
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Collector{cfg: cfg, reward: fn, log: log, metrics: m}
}

func (c *Collector) Config() Config { return c.cfg }

// ShouldCollect reports whether the paddle is close enough to strike in p.
func (c *Collector) ShouldCollect(p phase.Phase, cur state.Vector) bool {
	if p.Kind != phase.Resolved {
		return false
	}
	d := cur.PaddleBallDistance()
	if d > c.cfg.ActivationRadius {
		return false
	}
	return p.Mode == phase.Smash || d <= c.cfg.DontWaitRadius
}

// Collect applies the slot's action at pre, follows the ball until contact
// resolves and the point is scored, and pushes the resulting transition.
func (c *Collector) Collect(ctx context.Context, sim scape.Simulator, slot *Slot, p phase.Phase, pre state.Vector, joints arm.Joints) (Result, error) {
	if slot.Mode != p.Mode {
		return Result{}, fmt.Errorf("slot %s collects %s strikes, phase is %s", slot.Name, slot.Mode, p.Mode)
	}
	features := pre.Features()
	action, err := slot.Policy.Infer(features, slot.Noise)
	if err != nil {
		return Result{}, fmt.Errorf("%s action: %w", slot.Name, err)
	}
	if len(action) < 2 {
		return Result{}, fmt.Errorf("%s action has %d values, need 2", slot.Name, len(action))
	}

	radius := c.cfg.DontWaitRadius
	switch p.Mode {
	case phase.Smash:
		joints[arm.JointPaddleTilt] = arm.SmashTilt(p.StanceZ) + action[0]
		radius = c.cfg.SmashRadius
	default:
		joints[arm.JointPaddleTilt] = arm.ReadyTilt - action[0]
	}
	joints[arm.JointPaddleSpin] = action[1]
	if err := sim.SendJoints(ctx, joints); err != nil {
		return Result{}, fmt.Errorf("%s send strike: %w", slot.Name, err)
	}

	contact, err := waitContact(ctx, sim, radius)
	if err != nil {
		return Result{}, fmt.Errorf("%s contact: %w", slot.Name, err)
	}
	point := contact
	if pre.SameScore(contact) {
		point, err = c.waitScore(ctx, sim, contact)
		if err != nil {
			return Result{}, fmt.Errorf("%s score: %w", slot.Name, err)
		}
	}

	r := c.reward(pre, contact, point)
	tr := replay.NewTransition(features, action, true, point.Features(), r)
	slot.Buffer.Push(tr)
	slot.Filled++

	c.metrics.ObserveTransition(slot.Name, r, slot.Filled)
	c.log.WithFields(logrus.Fields{
		"agent":  slot.Name,
		"reward": r,
		"filled": slot.Filled,
		"action": action,
	}).Info("transition registered")

	return Result{Transition: tr, Joints: joints, Pre: pre, Contact: contact, Point: point}, nil
}

// waitContact reads until the ball leaves radius or heads back to the
// opponent.
func waitContact(ctx context.Context, sim scape.Simulator, radius float64) (state.Vector, error) {
	for {
		s, err := sim.State(ctx)
		if err != nil {
			return state.Vector{}, err
		}
		if s.PaddleBallDistance() > radius || s.BallVY() > 0 {
			return s, nil
		}
	}
}

func (c *Collector) waitScore(ctx context.Context, sim scape.Simulator, from state.Vector) (state.Vector, error) {
	waitCtx := ctx
	if c.cfg.ScoreTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.ScoreTimeout)
		defer cancel()
	}
	for {
		s, err := sim.State(waitCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return state.Vector{}, fmt.Errorf("%w after %s", ErrScoreTimeout, c.cfg.ScoreTimeout)
			}
			return state.Vector{}, err
		}
		if !s.SameScore(from) {
			return s, nil
		}
	}
}
