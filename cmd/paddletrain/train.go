package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"paddlerl/internal/arm"
	"paddlerl/internal/collector"
	"paddlerl/internal/config"
	"paddlerl/internal/ddpg"
	"paddlerl/internal/metrics"
	"paddlerl/internal/noise"
	"paddlerl/internal/phase"
	"paddlerl/internal/replay"
	"paddlerl/internal/reward"
	"paddlerl/internal/storage"
	"paddlerl/internal/training"
	"paddlerl/internal/trajectory"
	"paddlerl/internal/transport"
)

const (
	smashAgentName    = "smash_agent"
	dontWaitAgentName = "dont_wait_agent"
)

func runTraining(ctx context.Context, cfg config.Config) error {
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	entry := log.WithField("run_id", runID)

	store, err := storage.NewStore(cfg.Store.Kind, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	armModel, err := arm.LoadMLPModel(cfg.ArmWeights)
	if err != nil {
		return err
	}

	m := metrics.New()
	smash, err := newLearner(cfg, phase.Smash, smashAgentName, ddpg.SmashSpace(), cfg.Training.SmashCapacity, 0, runID, store, log)
	if err != nil {
		return err
	}
	dontWait, err := newLearner(cfg, phase.DontWait, dontWaitAgentName, ddpg.DontWaitSpace(), cfg.Training.DontWaitCapacity, 1, runID, store, log)
	if err != nil {
		return err
	}

	client, err := transport.Dial(ctx, transport.URL(cfg.Host, cfg.Port), cfg.Name, log)
	if err != nil {
		return err
	}
	defer client.Close()

	ctrl := phase.NewController(phase.Env{
		Predictor:      trajectory.NewBallistic(),
		Arm:            armModel,
		MaxRefinements: cfg.Collector.MaxRefinements,
	}, log)
	session, err := training.NewSession(cfg.TrainingConfig(runID), training.Deps{
		Simulator:  client,
		Controller: ctrl,
		Collector:  collector.New(cfg.CollectorConfig(), reward.Paddle, log, m),
		Smash:      smash,
		DontWait:   dontWait,
		Store:      store,
		Metrics:    m,
		Log:        log,
	})
	if err != nil {
		return err
	}
	if cfg.Store.Resume {
		if err := session.Restore(ctx, cfg.Store.ResumeEpoch); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			entry.WithField("addr", cfg.MetricsAddr).Info("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	start := time.Now()
	g.Go(func() error {
		defer cancel()
		entry.WithFields(logrus.Fields{
			"simulator": transport.URL(cfg.Host, cfg.Port),
			"store":     cfg.Store.Kind,
		}).Info("training started")
		res, err := session.Run(gctx)
		entry.WithFields(logrus.Fields{
			"cycles":  res.Cycles,
			"ticks":   humanize.Comma(int64(res.Ticks)),
			"records": len(res.Records),
			"started": humanize.Time(start),
		}).Info("training stopped")
		if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func newLearner(cfg config.Config, mode phase.Mode, name string, space ddpg.ActionSpace, capacity int, seedOffset int64, runID string, store storage.Store, log logrus.FieldLogger) (*training.Learner, error) {
	agentCfg := cfg.AgentConfig(name, space, runID)
	agentCfg.Seed += seedOffset
	agent, err := ddpg.New(agentCfg, store, log)
	if err != nil {
		return nil, err
	}
	ou, err := noise.NewOrnsteinUhlenbeck(cfg.NoiseConfig(space), rand.New(rand.NewSource(agentCfg.Seed+100)))
	if err != nil {
		return nil, fmt.Errorf("%s noise: %w", name, err)
	}
	buf, err := replay.NewBuffer(capacity, rand.New(rand.NewSource(agentCfg.Seed+200)))
	if err != nil {
		return nil, fmt.Errorf("%s buffer: %w", name, err)
	}
	return training.NewLearner(mode, agent, ou, buf), nil
}
