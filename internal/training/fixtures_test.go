package training

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"paddlerl/internal/arm"
	"paddlerl/internal/collector"
	"paddlerl/internal/ddpg"
	"paddlerl/internal/noise"
	"paddlerl/internal/phase"
	"paddlerl/internal/replay"
	"paddlerl/internal/reward"
	"paddlerl/internal/scape"
	"paddlerl/internal/state"
	"paddlerl/internal/storage"
)

// fixedFlight predicts the same landing and apex for every observation.
type fixedFlight struct{}

func (fixedFlight) Landing(state.Vector, float64) (float64, float64, bool) { return 0.1, 0.5, true }

func (fixedFlight) Apex(state.Vector) (float64, float64, float64, bool) { return 0.1, 0.1, 0.9, true }

var zeroArm = arm.ModelFunc(func(float64, float64) ([4]float64, error) { return [4]float64{}, nil })

// frame places the paddle at the origin.
func frame(playing bool, y, z, vy, vz, ours, opp float64) state.Vector {
	return state.NewBuilder().
		Playing(playing).
		Paddle(0, 0, 0.1).
		Ball(0, y, z).
		BallVelocity(0, vy, vz).
		Score(ours, opp).
		Build()
}

// smashRally is one rally where the returned ball is high enough to wait for
// the bounce. The collector fires at index 5 and the point is scored at
// index 9.
func smashRally(ours, opp float64) []state.Vector {
	return []state.Vector{
		frame(false, 2.0, 0.3, 0, 0, ours, opp),
		frame(true, 2.0, 0.3, 1, 0, ours, opp),   // rally start
		frame(true, 1.8, 0.4, -3, 1, ours, opp),  // opponent stroke, rising
		frame(true, 1.0, 0.2, -3, -2, ours, opp), // falling
		frame(true, 0.6, 0.05, -3, 2, ours, opp), // bounce
		frame(true, 0.25, 0.1, -3, 1, ours, opp), // in reach
		frame(true, 0.2, 0.1, -3, 1, ours, opp),  // still approaching
		frame(true, 0.05, 0.1, 3, 1, ours, opp),  // returned
		frame(true, 1.0, 0.3, 3, 0, ours, opp),   // in flight
		frame(true, 1.5, 0.3, 3, 0, ours+1, opp), // point won
	}
}

// dontWaitRally is one rally where the ball is struck before it bounces.
// The collector fires at index 4.
func dontWaitRally(ours, opp float64) []state.Vector {
	return []state.Vector{
		frame(false, 2.0, 0.3, 0, 0, ours, opp),
		frame(true, 2.0, 0.3, 1, 0, ours, opp),    // rally start
		frame(true, 1.8, 0.4, -3, -1, ours, opp),  // opponent stroke, falling
		frame(true, 0.8, 0.2, -3, -1, ours, opp),  // approaching
		frame(true, 0.15, 0.1, -3, -1, ours, opp), // in strike reach
		frame(true, 0.05, 0.1, 3, 1, ours, opp),   // returned
		frame(true, 1.5, 0.3, 3, 0, ours, opp+1),  // point lost
	}
}

type harness struct {
	sim      *scape.Scripted
	store    *storage.MemoryStore
	session  *Session
	smash    *Learner
	dontWait *Learner
}

func newLearner(t *testing.T, mode phase.Mode, name string, space ddpg.ActionSpace, capacity int, store storage.Store) *Learner {
	t.Helper()
	cfg := ddpg.DefaultConfig(name, state.FeatureSize, space)
	cfg.Hidden = []int{8}
	cfg.RunID = "run-test"
	agent, err := ddpg.New(cfg, store, nil)
	require.NoError(t, err)
	ou, err := noise.Isotropic(space.Dim(), 0.4, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	buf, err := replay.NewBuffer(capacity, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	return NewLearner(mode, agent, ou, buf)
}

func newHarness(t *testing.T, cfg Config, capacity int, fn reward.Func, frames ...state.Vector) *harness {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(testContext(t)))

	h := &harness{
		sim:      scape.NewScripted(frames...),
		store:    store,
		smash:    newLearner(t, phase.Smash, "smash_agent", ddpg.SmashSpace(), capacity, store),
		dontWait: newLearner(t, phase.DontWait, "dont_wait_agent", ddpg.DontWaitSpace(), capacity, store),
	}
	if cfg.RunID == "" {
		cfg.RunID = "run-test"
	}
	session, err := NewSession(cfg, Deps{
		Simulator:  h.sim,
		Controller: phase.NewController(phase.Env{Predictor: fixedFlight{}, Arm: zeroArm}, nil),
		Collector:  collector.New(collector.DefaultConfig(), fn, nil, nil),
		Smash:      h.smash,
		DontWait:   h.dontWait,
		Store:      store,
	})
	require.NoError(t, err)
	h.session = session
	return h
}

func fill(t *testing.T, l *Learner) {
	t.Helper()
	for i := 0; i < l.Slot.Buffer.Cap(); i++ {
		features := []float64{0, 0.2, 0.1, 0, -3, 1}
		l.Slot.Buffer.Push(replay.NewTransition(features, []float64{0.1, 0.2}, true, features, float64(i%2)))
		l.Slot.Filled++
	}
}

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled
// just before the test's Cleanup-registered functions run.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
