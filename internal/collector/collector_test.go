package collector

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paddlerl/internal/arm"
	"paddlerl/internal/ddpg"
	"paddlerl/internal/phase"
	"paddlerl/internal/replay"
	"paddlerl/internal/scape"
	"paddlerl/internal/state"
)

type fixedPolicy []float64

func (p fixedPolicy) Infer([]float64, ddpg.Noise) ([]float64, error) {
	return append([]float64(nil), p...), nil
}

func newSlot(t *testing.T, mode phase.Mode, action fixedPolicy) *Slot {
	t.Helper()
	buf, err := replay.NewBuffer(4, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return &Slot{Name: mode.String() + "_agent", Mode: mode, Policy: action, Buffer: buf}
}

// ball returns an in-play frame with the paddle at the origin and the ball at
// distance d along y.
func ball(d, vy float64, ours, opp float64) state.Vector {
	return state.NewBuilder().
		Playing(true).
		Paddle(0, 0, 0.1).
		Ball(0, d, 0.1).
		BallVelocity(0, vy, 0).
		Score(ours, opp).
		Build()
}

func TestShouldCollect(t *testing.T) {
	c := New(DefaultConfig(), nil, nil, nil)
	smash := phase.Phase{Kind: phase.Resolved, Mode: phase.Smash, StanceZ: 0.4}
	dontWait := phase.Phase{Kind: phase.Resolved, Mode: phase.DontWait}

	assert.True(t, c.ShouldCollect(smash, ball(0.3, -3, 0, 0)))
	assert.False(t, c.ShouldCollect(smash, ball(0.31, -3, 0, 0)))
	assert.True(t, c.ShouldCollect(dontWait, ball(0.2, -3, 0, 0)))
	assert.False(t, c.ShouldCollect(dontWait, ball(0.25, -3, 0, 0)))
	assert.False(t, c.ShouldCollect(phase.Phase{Kind: phase.SmashWait}, ball(0.1, -3, 0, 0)))
	assert.False(t, c.ShouldCollect(phase.Phase{Kind: phase.Ready}, ball(0.1, -3, 0, 0)))
}

func TestCollectAttributesRewardWhenPointIsScored(t *testing.T) {
	pre := ball(0.25, -3, 2, 1)
	sim := scape.NewScripted(
		ball(0.2, -3, 2, 1),
		ball(0.1, 3, 2, 1), // contact: ball returned
		ball(1.0, 3, 2, 1),
		ball(2.0, 3, 2, 1),
		ball(2.5, -1, 3, 1), // point won at tick 4
		ball(2.5, -1, 3, 1),
	)

	var seenAt int
	var seen [3]state.Vector
	rewardFn := func(p, c, pt state.Vector) float64 {
		seenAt = sim.Served()
		seen = [3]state.Vector{p, c, pt}
		return 1.5
	}
	c := New(DefaultConfig(), rewardFn, nil, nil)
	slot := newSlot(t, phase.Smash, fixedPolicy{0.1, -0.2})

	res, err := c.Collect(context.Background(), sim, slot, phase.Phase{Kind: phase.Resolved, Mode: phase.Smash, StanceZ: 0.5}, pre, arm.Neutral())
	require.NoError(t, err)

	assert.Equal(t, 5, seenAt)
	assert.Equal(t, 1, sim.Remaining())
	assert.Equal(t, pre, seen[0])
	assert.Equal(t, 3.0, seen[1].BallVY())
	assert.Equal(t, 3.0, seen[2].OurScore())
	assert.Equal(t, seen[2], res.Point)

	require.Equal(t, 1, slot.Filled)
	entries := slot.Buffer.Entries()
	require.Len(t, entries, 1)
	tr := entries[0]
	assert.True(t, tr.Done)
	assert.Equal(t, 1.5, tr.Reward)
	assert.Equal(t, pre.Features(), tr.State)
	assert.Equal(t, res.Point.Features(), tr.NextState)
	assert.Equal(t, []float64{0.1, -0.2}, tr.Action)

	sent := sim.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, -1, sent[0].Tick)
	assert.InDelta(t, arm.SmashTilt(0.5)+0.1, sent[0].Joints[arm.JointPaddleTilt], 1e-12)
	assert.Equal(t, -0.2, sent[0].Joints[arm.JointPaddleSpin])
}

func TestCollectScoreChangedAtContact(t *testing.T) {
	pre := ball(0.15, -3, 0, 0)
	sim := scape.NewScripted(
		ball(0.5, -3, 0, 1), // missed, opponent scored
		ball(0.9, -3, 0, 1),
	)
	c := New(DefaultConfig(), nil, nil, nil)
	slot := newSlot(t, phase.DontWait, fixedPolicy{0.2, 1.0})

	res, err := c.Collect(context.Background(), sim, slot, phase.Phase{Kind: phase.Resolved, Mode: phase.DontWait}, pre, arm.Neutral())
	require.NoError(t, err)
	assert.Equal(t, res.Contact, res.Point)
	assert.Equal(t, 1, sim.Served())
	assert.Equal(t, -1.0, res.Transition.Reward)
	assert.InDelta(t, arm.ReadyTilt-0.2, res.Joints[arm.JointPaddleTilt], 1e-12)
	assert.Equal(t, 1.0, res.Joints[arm.JointPaddleSpin])
}

func TestCollectDontWaitUsesTighterContactRadius(t *testing.T) {
	pre := ball(0.15, -3, 0, 0)
	frames := []state.Vector{
		ball(0.25, -3, 0, 0), // beyond 0.2: contact for don't-wait, not for smash
		ball(0.28, -3, 0, 0),
		ball(0.5, -3, 1, 0),
	}
	c := New(DefaultConfig(), nil, nil, nil)

	dw := scape.NewScripted(frames...)
	res, err := c.Collect(context.Background(), dw, newSlot(t, phase.DontWait, fixedPolicy{0, 1}), phase.Phase{Kind: phase.Resolved, Mode: phase.DontWait}, pre, arm.Neutral())
	require.NoError(t, err)
	assert.Equal(t, frames[0], res.Contact)

	sm := scape.NewScripted(frames...)
	res, err = c.Collect(context.Background(), sm, newSlot(t, phase.Smash, fixedPolicy{0, 0}), phase.Phase{Kind: phase.Resolved, Mode: phase.Smash}, pre, arm.Neutral())
	require.NoError(t, err)
	assert.Equal(t, frames[2], res.Contact)
}

func TestCollectRejectsModeMismatch(t *testing.T) {
	c := New(DefaultConfig(), nil, nil, nil)
	_, err := c.Collect(context.Background(), scape.NewScripted(), newSlot(t, phase.Smash, fixedPolicy{0, 0}),
		phase.Phase{Kind: phase.Resolved, Mode: phase.DontWait}, ball(0.1, -3, 0, 0), arm.Neutral())
	require.Error(t, err)
}

// stallingSim keeps serving the same frame until its context ends.
type stallingSim struct {
	frame state.Vector
}

func (s stallingSim) State(ctx context.Context) (state.Vector, error) {
	select {
	case <-ctx.Done():
		return state.Vector{}, ctx.Err()
	case <-time.After(time.Millisecond):
		return s.frame, nil
	}
}

func (s stallingSim) SendJoints(ctx context.Context, _ arm.Joints) error { return ctx.Err() }

func TestCollectScoreWaitTimesOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScoreTimeout = 20 * time.Millisecond
	c := New(cfg, nil, nil, nil)
	slot := newSlot(t, phase.Smash, fixedPolicy{0, 0})
	sim := stallingSim{frame: ball(1.0, 3, 0, 0)}

	_, err := c.Collect(context.Background(), sim, slot, phase.Phase{Kind: phase.Resolved, Mode: phase.Smash}, ball(0.1, -3, 0, 0), arm.Neutral())
	require.ErrorIs(t, err, ErrScoreTimeout)
	assert.Zero(t, slot.Filled)
	assert.Zero(t, slot.Buffer.Len())
}

func TestCollectHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c := New(DefaultConfig(), nil, nil, nil)
	sim := stallingSim{frame: ball(1.0, 3, 0, 0)}

	_, err := c.Collect(ctx, sim, newSlot(t, phase.Smash, fixedPolicy{0, 0}), phase.Phase{Kind: phase.Resolved, Mode: phase.Smash}, ball(0.1, -3, 0, 0), arm.Neutral())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrScoreTimeout))
}
