package phase

import (
	"io"

	"github.com/sirupsen/logrus"

	"paddlerl/internal/arm"
	"paddlerl/internal/state"
)

// Controller carries the rally phase, the commanded joints and the previous
// observation across ticks.
type Controller struct {
	env     Env
	log     logrus.FieldLogger
	phase   Phase
	joints  arm.Joints
	prev    state.Vector
	primed  bool
	onEvent func(Event)
}

func NewController(env Env, log logrus.FieldLogger) *Controller {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Controller{env: env, log: log, joints: arm.Neutral()}
}

// OnEvent registers a hook called for every phase event.
func (c *Controller) OnEvent(fn func(Event)) { c.onEvent = fn }

// Prime sets the observation the first Observe call compares against.
func (c *Controller) Prime(prev state.Vector) {
	c.prev = prev
	c.primed = true
}

func (c *Controller) Primed() bool { return c.primed }
func (c *Controller) Phase() Phase { return c.phase }
func (c *Controller) Joints() arm.Joints { return c.joints }
func (c *Controller) Previous() state.Vector { return c.prev }

// Active reports whether cur is a ball the paddle should react to in the
// current phase.
func (c *Controller) Active(cur state.Vector) bool { return Active(c.phase, cur) }

// SetJoints records joints applied outside the phase machine.
func (c *Controller) SetJoints(j arm.Joints) { c.joints = j }

// SetPrevious replaces the stored previous observation, used after the
// collector consumed several ticks.
func (c *Controller) SetPrevious(v state.Vector) { c.prev = v }

// Observe advances the phase for cur and makes cur the previous observation.
func (c *Controller) Observe(cur state.Vector) (Outcome, error) {
	if !c.primed {
		c.Prime(cur)
	}
	out, err := Next(c.env, c.phase, c.prev, cur, c.joints)
	if err != nil {
		return Outcome{}, err
	}
	from := c.phase
	c.phase = out.Phase
	if out.Target != nil {
		c.joints = *out.Target
	}
	c.prev = cur

	for _, ev := range out.Events {
		fields := logrus.Fields{"event": ev.String(), "from": from.String(), "phase": c.phase.String()}
		if ev == EventRefinementExhausted {
			c.log.WithFields(fields).WithError(ErrRefinementExhausted).Warn("smash stance unresolved")
		} else {
			c.log.WithFields(fields).Debug("phase event")
		}
		if c.onEvent != nil {
			c.onEvent(ev)
		}
	}
	return out, nil
}
