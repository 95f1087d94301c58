package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"paddlerl/internal/collector"
	"paddlerl/internal/ddpg"
	"paddlerl/internal/noise"
	"paddlerl/internal/phase"
	"paddlerl/internal/state"
	"paddlerl/internal/storage"
	"paddlerl/internal/training"
	"paddlerl/internal/transport"
)

// EnvPrefix namespaces environment overrides, e.g. PADDLERL_PORT.
const EnvPrefix = "PADDLERL_"

const (
	DefaultCapacity    = 50
	DefaultNoiseSigma  = 0.4
	DefaultCheckpoints = "checkpoints"
	DefaultArmWeights  = "arm_weights.json"
)

type Config struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsAddr string `yaml:"metrics_addr"`
	ArmWeights  string `yaml:"arm_weights"`

	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Agent     AgentConfig     `yaml:"agent"`
	Training  TrainingConfig  `yaml:"training"`
	Collector CollectorConfig `yaml:"collector"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	// Resume loads checkpoints before training; ResumeEpoch < 0 picks the
	// newest one per agent.
	Resume      bool `yaml:"resume"`
	ResumeEpoch int  `yaml:"resume_epoch"`
}

type AgentConfig struct {
	Gamma      float64 `yaml:"gamma"`
	Tau        float64 `yaml:"tau"`
	Hidden     []int   `yaml:"hidden"`
	ActorLR    float64 `yaml:"actor_lr"`
	CriticLR   float64 `yaml:"critic_lr"`
	NoiseSigma float64 `yaml:"noise_sigma"`
	NoiseTheta float64 `yaml:"noise_theta"`
	NoiseDt    float64 `yaml:"noise_dt"`
	Seed       int64   `yaml:"seed"`
}

type TrainingConfig struct {
	SmashCapacity    int `yaml:"smash_capacity"`
	DontWaitCapacity int `yaml:"dont_wait_capacity"`
	Epochs           int `yaml:"epochs"`
	Batches          int `yaml:"batches"`
	BatchSize        int `yaml:"batch_size"`
	HardSyncEvery    int `yaml:"hard_sync_every"`
	CheckpointEvery  int `yaml:"checkpoint_every"`
	MaxCycles        int `yaml:"max_cycles"`
}

type CollectorConfig struct {
	ActivationRadius float64       `yaml:"activation_radius"`
	DontWaitRadius   float64       `yaml:"dont_wait_radius"`
	SmashRadius      float64       `yaml:"smash_radius"`
	ScoreTimeout     time.Duration `yaml:"score_timeout"`
	MaxRefinements   int           `yaml:"max_refinements"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	tr := training.DefaultConfig()
	co := collector.DefaultConfig()
	return Config{
		Name: transport.DefaultName,
		Host: transport.DefaultHost,
		Port: transport.DefaultPort,

		ArmWeights: DefaultArmWeights,
		Log:        LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Kind:        storage.DefaultStoreKind(),
			Path:        DefaultCheckpoints,
			ResumeEpoch: -1,
		},
		Agent: AgentConfig{
			Gamma:      ddpg.DefaultGamma,
			Tau:        ddpg.DefaultTau,
			Hidden:     append([]int(nil), ddpg.DefaultHidden...),
			ActorLR:    ddpg.DefaultActorLR,
			CriticLR:   ddpg.DefaultCriticLR,
			NoiseSigma: DefaultNoiseSigma,
			NoiseTheta: noise.DefaultTheta,
			NoiseDt:    noise.DefaultDt,
			Seed:       1,
		},
		Training: TrainingConfig{
			SmashCapacity:    DefaultCapacity,
			DontWaitCapacity: DefaultCapacity,
			Epochs:           tr.Epochs,
			Batches:          tr.Batches,
			BatchSize:        tr.BatchSize,
			HardSyncEvery:    tr.HardSyncEvery,
			CheckpointEvery:  tr.CheckpointEvery,
		},
		Collector: CollectorConfig{
			ActivationRadius: co.ActivationRadius,
			DontWaitRadius:   co.DontWaitRadius,
			SmashRadius:      co.SmashRadius,
			MaxRefinements:   phase.DefaultMaxRefinements,
		},
	}
}

// Load reads an optional YAML file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from PADDLERL_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("NAME", &c.Name)
	str("HOST", &c.Host)
	num("PORT", &c.Port)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("ARM_WEIGHTS", &c.ArmWeights)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("STORE", &c.Store.Kind)
	str("STORE_PATH", &c.Store.Path)
	num("MAX_CYCLES", &c.Training.MaxCycles)
	num("SMASH_CAPACITY", &c.Training.SmashCapacity)
	num("DONT_WAIT_CAPACITY", &c.Training.DontWaitCapacity)

	if v, ok := lookup(EnvPrefix + "SCORE_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSCORE_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Collector.ScoreTimeout = d
		}
	}
	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			c.Agent.Seed = n
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Name != "", "name must not be empty")
	check(c.Host != "", "host must not be empty")
	check(c.ArmWeights != "", "arm weights path must not be empty")
	check(c.Port > 0 && c.Port <= 65535, "port must be in 1..65535, got %d", c.Port)
	check(c.Training.SmashCapacity > 0, "smash capacity must be positive, got %d", c.Training.SmashCapacity)
	check(c.Training.DontWaitCapacity > 0, "don't-wait capacity must be positive, got %d", c.Training.DontWaitCapacity)
	check(c.Agent.Tau > 0 && c.Agent.Tau <= 1, "tau must be in (0, 1], got %v", c.Agent.Tau)
	check(c.Agent.Gamma >= 0 && c.Agent.Gamma <= 1, "gamma must be in [0, 1], got %v", c.Agent.Gamma)
	check(c.Agent.ActorLR > 0 && c.Agent.CriticLR > 0, "learning rates must be positive")
	check(c.Agent.NoiseSigma >= 0, "noise sigma must not be negative, got %v", c.Agent.NoiseSigma)
	for _, h := range c.Agent.Hidden {
		check(h > 0, "hidden layer sizes must be positive, got %v", c.Agent.Hidden)
	}
	check(c.Collector.ActivationRadius > 0, "activation radius must be positive")
	check(c.Collector.DontWaitRadius > 0 && c.Collector.SmashRadius > 0, "contact radii must be positive")
	check(c.Collector.ScoreTimeout >= 0, "score timeout must not be negative")
	switch c.Store.Kind {
	case storage.KindMemory, storage.KindDir, storage.KindSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported store backend: %q", c.Store.Kind))
	}
	check(c.Store.Kind == storage.KindMemory || c.Store.Path != "", "store path is required for %s", c.Store.Kind)
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	check(c.Log.Format == "text" || c.Log.Format == "json", "log format must be text or json, got %q", c.Log.Format)
	if err := c.TrainingConfig("").Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Logger builds the process logger.
func (c Config) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

func (c Config) TrainingConfig(runID string) training.Config {
	return training.Config{
		RunID:           runID,
		Epochs:          c.Training.Epochs,
		Batches:         c.Training.Batches,
		BatchSize:       c.Training.BatchSize,
		HardSyncEvery:   c.Training.HardSyncEvery,
		CheckpointEvery: c.Training.CheckpointEvery,
		MaxCycles:       c.Training.MaxCycles,
	}
}

func (c Config) CollectorConfig() collector.Config {
	return collector.Config{
		ActivationRadius: c.Collector.ActivationRadius,
		DontWaitRadius:   c.Collector.DontWaitRadius,
		SmashRadius:      c.Collector.SmashRadius,
		ScoreTimeout:     c.Collector.ScoreTimeout,
	}
}

// AgentConfig builds the DDPG configuration of one named agent.
func (c Config) AgentConfig(name string, space ddpg.ActionSpace, runID string) ddpg.Config {
	cfg := ddpg.DefaultConfig(name, state.FeatureSize, space)
	cfg.Gamma = c.Agent.Gamma
	cfg.Tau = c.Agent.Tau
	if len(c.Agent.Hidden) > 0 {
		cfg.Hidden = append([]int(nil), c.Agent.Hidden...)
	}
	cfg.ActorLR = c.Agent.ActorLR
	cfg.CriticLR = c.Agent.CriticLR
	cfg.Seed = c.Agent.Seed
	cfg.RunID = runID
	return cfg
}

// NoiseConfig builds the exploration process for an action space.
func (c Config) NoiseConfig(space ddpg.ActionSpace) noise.Config {
	dim := space.Dim()
	sigma := make([]float64, dim)
	for i := range sigma {
		sigma[i] = c.Agent.NoiseSigma
	}
	return noise.Config{
		Mu:    make([]float64, dim),
		Sigma: sigma,
		Theta: c.Agent.NoiseTheta,
		Dt:    c.Agent.NoiseDt,
	}
}
