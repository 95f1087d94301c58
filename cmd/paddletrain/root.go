package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"paddlerl/internal/config"
)

// trainFn is replaced in tests.
var trainFn = runTraining

type rootFlags struct {
	configPath  string
	envFile     string
	store       string
	storePath   string
	metricsAddr string
	armWeights  string
	logLevel    string
	logFormat   string
	scoreTime   time.Duration
	maxCycles   int
	resume      bool
	resumeEpoch int
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "paddletrain [name] [port] [host]",
		Short: "Train the smash and don't-wait paddle agents against a simulation server",
		Long: `paddletrain connects to a table-tennis simulation server, collects strike
transitions for the smash and don't-wait agents and trains both with DDPG,
saving checkpoints as it goes.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f, args)
			if err != nil {
				return err
			}
			return trainFn(cmd.Context(), cfg)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file with PADDLERL_* overrides")
	pf.StringVar(&f.store, "store", "", "checkpoint store backend: dir|memory|sqlite")
	pf.StringVar(&f.storePath, "store-path", "", "checkpoint directory or sqlite database file")
	pf.StringVar(&f.logLevel, "log-level", "", "log level")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: text|json")

	fl := cmd.Flags()
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fl.StringVar(&f.armWeights, "arm-weights", "", "arm positioning network weights (JSON)")
	fl.DurationVar(&f.scoreTime, "score-timeout", 0, "give up waiting for a point after this long (0 waits forever)")
	fl.IntVar(&f.maxCycles, "max-cycles", 0, "stop after this many collect/train cycles (0 runs until interrupted)")
	fl.BoolVar(&f.resume, "resume", false, "load agent checkpoints before training")
	fl.IntVar(&f.resumeEpoch, "resume-epoch", -1, "checkpoint epoch to resume from (-1 = newest)")

	cmd.AddCommand(newCheckpointsCmd(&f), newHistoryCmd(&f), newReplayCmd())
	return cmd
}

// resolveConfig layers defaults, the YAML file, the environment, positional
// arguments and flags, in that order.
func resolveConfig(cmd *cobra.Command, f rootFlags, args []string) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}

	if len(args) > 0 {
		cfg.Name = args[0]
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid port %q: %w", args[1], err)
		}
		cfg.Port = port
	}
	if len(args) > 2 {
		cfg.Host = args[2]
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("store") {
		cfg.Store.Kind = f.store
	}
	if changed("store-path") {
		cfg.Store.Path = f.storePath
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("arm-weights") {
		cfg.ArmWeights = f.armWeights
	}
	if changed("score-timeout") {
		cfg.Collector.ScoreTimeout = f.scoreTime
	}
	if changed("max-cycles") {
		cfg.Training.MaxCycles = f.maxCycles
	}
	if changed("resume-epoch") {
		cfg.Store.ResumeEpoch = f.resumeEpoch
	}
	if f.resume {
		cfg.Store.Resume = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
