package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"paddlerl/internal/collector"
	"paddlerl/internal/ddpg"
	"paddlerl/internal/metrics"
	"paddlerl/internal/model"
	"paddlerl/internal/phase"
	"paddlerl/internal/replay"
	"paddlerl/internal/scape"
	"paddlerl/internal/storage"
)

const (
	DefaultEpochs          = 2
	DefaultBatches         = 25
	DefaultBatchSize       = 1
	DefaultHardSyncEvery   = 20
	DefaultCheckpointEvery = 10
)

type Config struct {
	RunID string
	// Epochs and Batches shape one training phase: Epochs x Batches updates
	// of BatchSize transitions each.
	Epochs    int
	Batches   int
	BatchSize int
	// HardSyncEvery is the number of epochs between target hard syncs.
	HardSyncEvery int
	// CheckpointEvery saves a checkpoint whenever the model epoch is a
	// multiple of it.
	CheckpointEvery int
	// MaxCycles stops Run after that many collect+train cycles; 0 runs until
	// the context ends.
	MaxCycles int
}

func DefaultConfig() Config {
	return Config{
		Epochs:          DefaultEpochs,
		Batches:         DefaultBatches,
		BatchSize:       DefaultBatchSize,
		HardSyncEvery:   DefaultHardSyncEvery,
		CheckpointEvery: DefaultCheckpointEvery,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Epochs <= 0:
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	case c.Batches <= 0:
		return fmt.Errorf("batches must be positive, got %d", c.Batches)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.HardSyncEvery <= 0:
		return fmt.Errorf("hard sync interval must be positive, got %d", c.HardSyncEvery)
	case c.CheckpointEvery <= 0:
		return fmt.Errorf("checkpoint interval must be positive, got %d", c.CheckpointEvery)
	case c.MaxCycles < 0:
		return fmt.Errorf("max cycles must not be negative, got %d", c.MaxCycles)
	}
	return nil
}

// Learner pairs an agent with its collection slot and training counters.
type Learner struct {
	Agent *ddpg.Agent
	Slot  *collector.Slot

	hardCounter int
	modelEpoch  int
}

func NewLearner(mode phase.Mode, agent *ddpg.Agent, noise ddpg.Noise, buffer *replay.Buffer) *Learner {
	return &Learner{
		Agent: agent,
		Slot: &collector.Slot{
			Name:   agent.Name(),
			Mode:   mode,
			Policy: agent,
			Noise:  noise,
			Buffer: buffer,
		},
	}
}

func (l *Learner) Name() string { return l.Agent.Name() }

// HardCounter counts epochs since the last hard sync.
func (l *Learner) HardCounter() int { return l.hardCounter }

// ModelEpoch counts epochs trained over the agent's lifetime.
func (l *Learner) ModelEpoch() int { return l.modelEpoch }

// Deps wires the session to its collaborators. Store and Metrics may be nil.
type Deps struct {
	Simulator  scape.Simulator
	Controller *phase.Controller
	Collector  *collector.Collector
	Smash      *Learner
	DontWait   *Learner
	Store      storage.Store
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
}

type RunResult struct {
	Cycles  int
	Ticks   int
	Records []model.TrainingRecord
}

// Session alternates collection and training for the smash and don't-wait
// agents over one simulator connection.
type Session struct {
	cfg      Config
	sim      scape.Simulator
	ctrl     *phase.Controller
	coll     *collector.Collector
	learners []*Learner
	store    storage.Store
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	ticks    int
}

func NewSession(cfg Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Simulator == nil || deps.Controller == nil || deps.Collector == nil {
		return nil, errors.New("session needs a simulator, a phase controller and a collector")
	}
	if deps.Smash == nil || deps.DontWait == nil {
		return nil, errors.New("session needs both smash and don't-wait learners")
	}
	if deps.Smash.Slot.Mode != phase.Smash || deps.DontWait.Slot.Mode != phase.DontWait {
		return nil, errors.New("learner modes do not match their roles")
	}
	log := deps.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	s := &Session{
		cfg:      cfg,
		sim:      deps.Simulator,
		ctrl:     deps.Controller,
		coll:     deps.Collector,
		learners: []*Learner{deps.Smash, deps.DontWait},
		store:    deps.Store,
		metrics:  deps.Metrics,
		log:      log.WithField("run_id", cfg.RunID),
	}
	s.ctrl.OnEvent(func(ev phase.Event) { s.metrics.IncPhaseEvent(ev.String()) })
	return s, nil
}

func (s *Session) Learner(mode phase.Mode) *Learner {
	if mode == phase.Smash {
		return s.learners[0]
	}
	return s.learners[1]
}

// Ticks counts simulator observations handled by Step.
func (s *Session) Ticks() int { return s.ticks }

// Restore loads each agent's checkpoint at epoch (newest when epoch < 0) and
// continues the model epoch count from it.
func (s *Session) Restore(ctx context.Context, epoch int) error {
	for _, l := range s.learners {
		loaded, ok, err := l.Agent.LoadCheckpoint(ctx, epoch)
		if err != nil {
			return err
		}
		if !ok {
			s.log.WithField("agent", l.Name()).Warn("no checkpoint to restore, starting fresh")
			continue
		}
		l.modelEpoch = loaded
	}
	return nil
}

// Run alternates Collect and Train until the context ends or MaxCycles is
// reached.
func (s *Session) Run(ctx context.Context) (RunResult, error) {
	var res RunResult
	for s.cfg.MaxCycles == 0 || res.Cycles < s.cfg.MaxCycles {
		if err := s.Collect(ctx); err != nil {
			res.Ticks = s.ticks
			return res, err
		}
		records, err := s.Train(ctx)
		res.Records = append(res.Records, records...)
		if err != nil {
			res.Ticks = s.ticks
			return res, err
		}
		res.Cycles++
	}
	res.Ticks = s.ticks
	return res, nil
}

// CollectionDone reports whether every agent filled its buffer this phase.
func (s *Session) CollectionDone() bool {
	for _, l := range s.learners {
		if !l.Slot.Full() {
			return false
		}
	}
	return true
}

// Collect steps the simulator until both agents have a full buffer's worth of
// fresh transitions.
func (s *Session) Collect(ctx context.Context) error {
	for _, l := range s.learners {
		if l.Slot.Full() {
			l.Slot.Filled = 0
		}
		s.metrics.SetFill(l.Name(), l.Slot.Filled)
	}
	start := time.Now()
	for !s.CollectionDone() {
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	s.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("collection phase complete")
	return nil
}

// Step handles one observation: advance the rally phase, collect a transition
// when a committed stance meets the ball, and send the joint command.
func (s *Session) Step(ctx context.Context) error {
	cur, err := s.sim.State(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	s.ticks++

	if _, err := s.ctrl.Observe(cur); err != nil {
		return fmt.Errorf("phase: %w", err)
	}
	p := s.ctrl.Phase()
	if s.ctrl.Active(cur) && s.coll.ShouldCollect(p, cur) {
		l := s.Learner(p.Mode)
		res, err := s.coll.Collect(ctx, s.sim, l.Slot, p, cur, s.ctrl.Joints())
		if err != nil {
			return fmt.Errorf("collect: %w", err)
		}
		s.ctrl.SetJoints(res.Joints)
		s.ctrl.SetPrevious(res.Point)
	}

	if err := s.sim.SendJoints(ctx, s.ctrl.Joints()); err != nil {
		return fmt.Errorf("send joints: %w", err)
	}
	return nil
}

// Train runs a training phase for every agent whose buffer filled during the
// last collection phase.
func (s *Session) Train(ctx context.Context) ([]model.TrainingRecord, error) {
	var records []model.TrainingRecord
	for _, l := range s.learners {
		if !l.Slot.Full() {
			s.log.WithFields(logrus.Fields{"agent": l.Name(), "filled": l.Slot.Filled}).Debug("buffer not full, skipping training")
			continue
		}
		rec, err := s.train(ctx, l)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Session) train(ctx context.Context, l *Learner) (model.TrainingRecord, error) {
	start := time.Now()
	var criticSum, actorSum float64
	updates := 0
	for epoch := 0; epoch < s.cfg.Epochs; epoch++ {
		for b := 0; b < s.cfg.Batches; b++ {
			if err := ctx.Err(); err != nil {
				return model.TrainingRecord{}, err
			}
			batch, err := l.Slot.Buffer.Sample(s.cfg.BatchSize)
			if err != nil {
				return model.TrainingRecord{}, fmt.Errorf("%s sample: %w", l.Name(), err)
			}
			stats, err := l.Agent.Update(batch)
			if err != nil {
				return model.TrainingRecord{}, fmt.Errorf("%s update: %w", l.Name(), err)
			}
			criticSum += stats.CriticLoss
			actorSum += stats.ActorLoss
			updates++
		}
		l.hardCounter++
		l.modelEpoch++
	}

	rec := model.TrainingRecord{
		VersionedRecord: storage.Versioned(),
		Agent:           l.Name(),
		ModelEpoch:      l.modelEpoch,
		Updates:         updates,
		CriticLoss:      criticSum / float64(updates),
		ActorLoss:       actorSum / float64(updates),
		MeanReward:      l.Slot.Buffer.MeanReward(),
	}

	if l.hardCounter >= s.cfg.HardSyncEvery {
		if err := l.Agent.HardSync(); err != nil {
			return model.TrainingRecord{}, err
		}
		l.hardCounter = 0
		rec.HardSynced = true
		s.metrics.IncHardSync(l.Name())
	}
	if l.modelEpoch > 0 && l.modelEpoch%s.cfg.CheckpointEvery == 0 {
		if s.store == nil {
			s.log.WithField("agent", l.Name()).Warn("no store configured, checkpoint skipped")
		} else {
			if err := l.Agent.Checkpoint(ctx, l.modelEpoch); err != nil {
				return model.TrainingRecord{}, err
			}
			rec.Checkpoint = true
			s.metrics.IncCheckpoint(l.Name())
		}
	}
	rec.CompletedAt = time.Now().UTC()

	if s.store != nil {
		if err := s.store.AppendTrainingRecord(ctx, s.cfg.RunID, rec); err != nil {
			return model.TrainingRecord{}, fmt.Errorf("%s training record: %w", l.Name(), err)
		}
	}
	s.metrics.ObserveTraining(l.Name(), updates, rec.CriticLoss, rec.ActorLoss)
	s.log.WithFields(logrus.Fields{
		"agent":       l.Name(),
		"epoch":       l.modelEpoch,
		"updates":     humanize.Comma(int64(l.Agent.Updates())),
		"critic_loss": rec.CriticLoss,
		"actor_loss":  rec.ActorLoss,
		"mean_reward": rec.MeanReward,
		"hard_sync":   rec.HardSynced,
		"checkpoint":  rec.Checkpoint,
		"took":        humanize.RelTime(start, time.Now(), "", ""),
	}).Info("training phase complete")
	return rec, nil
}
