package phase

import (
	"errors"
	"fmt"
	"math"

	"paddlerl/internal/arm"
	"paddlerl/internal/state"
	"paddlerl/internal/trajectory"
)

// Court and stance geometry.
const (
	CourtHalfWidth   = 0.75
	CourtNearY       = -0.2
	CourtFarY        = 1.2
	NetY             = 1.2
	DeepLandingY     = 0.2
	SmashApexMin     = 0.75
	SmashStrikeMaxY  = 0.2
	RefinementStep   = 0.05
	ReadyDepth       = 0.8
	StanceHeight     = 0.5
	DontWaitDepthAdj = 0.2
	SmashDepthAdj    = 0.15
	SmashHeightAdj   = 0.4
	RunAwaySlide     = 0.8

	DefaultMaxRefinements = 40
)

var ErrRefinementExhausted = errors.New("smash stance refinement found no reachable strike point")

type Kind int

const (
	// Ready waits for the opponent's stroke after a rally (re)start.
	Ready Kind = iota
	// RunAway gives up on a ball that lands outside the reachable court.
	RunAway
	// SmashWait holds the swing until the ball has bounced.
	SmashWait
	// Resolved has a committed stance; the collector may fire.
	Resolved
)

func (k Kind) String() string {
	switch k {
	case Ready:
		return "ready"
	case RunAway:
		return "run_away"
	case SmashWait:
		return "smash_wait"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Mode int

const (
	DontWait Mode = iota
	Smash
)

func (m Mode) String() string {
	if m == Smash {
		return "smash"
	}
	return "dont_wait"
}

// Phase is the rally state. Mode and StanceZ are meaningful only when Kind is
// Resolved.
type Phase struct {
	Kind    Kind
	Mode    Mode
	StanceZ float64
}

func (p Phase) String() string {
	if p.Kind == Resolved {
		return fmt.Sprintf("%s/%s", p.Kind, p.Mode)
	}
	return p.Kind.String()
}

type Event int

const (
	EventNone Event = iota
	EventReset
	EventRunAway
	EventSmashWait
	EventDontWait
	EventSmashStance
	EventRefinementExhausted
)

func (e Event) String() string {
	switch e {
	case EventReset:
		return "reset"
	case EventRunAway:
		return "run_away"
	case EventSmashWait:
		return "smash_wait"
	case EventDontWait:
		return "dont_wait"
	case EventSmashStance:
		return "smash_stance"
	case EventRefinementExhausted:
		return "refinement_exhausted"
	default:
		return "none"
	}
}

// Env holds the collaborators a transition may consult.
type Env struct {
	Predictor trajectory.Predictor
	Arm       arm.Model
	// MaxRefinements caps the smash stance search; <= 0 uses DefaultMaxRefinements.
	MaxRefinements int
}

// Outcome is the result of one tick. Target is nil when the joint command is
// unchanged; Events lists what happened in order.
type Outcome struct {
	Phase  Phase
	Target *arm.Joints
	Events []Event
}

func (o Outcome) Has(e Event) bool {
	for _, got := range o.Events {
		if got == e {
			return true
		}
	}
	return false
}

// Next computes the rally phase for cur given the previous tick.
func Next(env Env, p Phase, prev, cur state.Vector, joints arm.Joints) (Outcome, error) {
	out := Outcome{Phase: p}
	target := joints
	changed := false

	if isRallyStart(prev, cur) {
		a, err := env.Arm.Joints(StanceHeight, ReadyDepth)
		if err != nil {
			return Outcome{}, fmt.Errorf("ready pose: %w", err)
		}
		target = target.WithArm(a)
		target[arm.JointSlide] = 0
		target[arm.JointPaddleTilt] = arm.ReadyTilt
		target[arm.JointPaddleSpin] = math.Pi / 2
		changed = true
		out.Phase = Phase{Kind: Ready}
		out.Events = append(out.Events, EventReset)
	}

	if Active(out.Phase, cur) {
		if isStroke(prev, cur) && (out.Phase.Kind == Ready || out.Phase.Kind == SmashWait) {
			next, j, ev, err := onStroke(env, out.Phase, cur, target)
			if err != nil {
				return Outcome{}, err
			}
			if ev != EventNone {
				out.Phase, target, changed = next, j, true
				out.Events = append(out.Events, ev)
			}
		}

		if out.Phase.Kind == SmashWait && isBounce(prev, cur) && prev.BallY() < NetY {
			next, j, ev, err := onBounce(env, cur, target)
			if err != nil {
				return Outcome{}, err
			}
			out.Events = append(out.Events, ev)
			if ev == EventSmashStance {
				out.Phase, target, changed = next, j, true
			}
		}
	}

	if changed {
		out.Target = &target
	}
	return out, nil
}

// Active reports whether the ball is an incoming, live, in-air ball this
// paddle should be reacting to.
func Active(p Phase, cur state.Vector) bool {
	return cur.BallVY() < 0 && cur.Playing() && p.Kind != RunAway && cur.BallZ() > 0
}

func isRallyStart(prev, cur state.Vector) bool {
	return (!prev.Playing() && cur.Playing()) || (cur.BallVY() > 0 && prev.BallY() > NetY)
}

// isStroke detects the opponent's hit as a reversal of the ball's direction
// along the table.
func isStroke(prev, cur state.Vector) bool {
	return prev.BallVY()*cur.BallVY() <= 0
}

func isBounce(prev, cur state.Vector) bool {
	return prev.BallVZ() < 0 && cur.BallVZ() > 0
}

// OutOfCourt reports whether a landing point cannot be reached.
func OutOfCourt(x, y float64) bool {
	return x < -CourtHalfWidth || x > CourtHalfWidth || y < CourtNearY || y > CourtFarY
}

func onStroke(env Env, p Phase, cur state.Vector, joints arm.Joints) (Phase, arm.Joints, Event, error) {
	x, y, ok := env.Predictor.Landing(cur, 0)
	if !ok {
		return p, joints, EventNone, nil
	}

	if OutOfCourt(x, y) {
		j := arm.Neutral()
		if x <= 0 {
			j[arm.JointSlide] = RunAwaySlide
		} else {
			j[arm.JointSlide] = -RunAwaySlide
		}
		return Phase{Kind: RunAway}, j, EventRunAway, nil
	}

	if _, _, zMax, apexOK := env.Predictor.Apex(cur); apexOK && cur.BallVZ() > 0 && y > DeepLandingY && zMax >= SmashApexMin {
		return Phase{Kind: SmashWait}, arm.Neutral(), EventSmashWait, nil
	}

	a, err := env.Arm.Joints(StanceHeight, y+DontWaitDepthAdj)
	if err != nil {
		return p, joints, EventNone, fmt.Errorf("dont-wait stance: %w", err)
	}
	j := joints.WithArm(a)
	j[arm.JointSlide] = x
	j[arm.JointPaddleTilt] = arm.ReadyTilt
	return Phase{Kind: Resolved, Mode: DontWait}, j, EventDontWait, nil
}

// onBounce lowers the strike height from the apex until the ball would be
// met close enough to the paddle's baseline.
func onBounce(env Env, cur state.Vector, joints arm.Joints) (Phase, arm.Joints, Event, error) {
	limit := env.MaxRefinements
	if limit <= 0 {
		limit = DefaultMaxRefinements
	}

	x, y, z, ok := env.Predictor.Apex(cur)
	if !ok {
		z = cur.BallZ()
		x, y, ok = env.Predictor.Landing(cur, z)
	}
	for i := 0; !ok || y > SmashStrikeMaxY; i++ {
		if i >= limit {
			return Phase{Kind: SmashWait}, joints, EventRefinementExhausted, nil
		}
		z -= RefinementStep
		x, y, ok = env.Predictor.Landing(cur, z)
	}

	depth := y + SmashDepthAdj
	height := z - SmashHeightAdj
	a, err := env.Arm.Joints(height, depth)
	if err != nil {
		return Phase{}, joints, EventNone, fmt.Errorf("smash stance: %w", err)
	}
	j := joints.WithArm(a)
	j[arm.JointSlide] = x
	j[arm.JointPaddleTilt] = arm.SmashTilt(height)
	return Phase{Kind: Resolved, Mode: Smash, StanceZ: height}, j, EventSmashStance, nil
}
