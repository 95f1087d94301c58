package model

import (
	"time"

	"paddlerl/internal/nn"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Checkpoint holds the online networks of one agent at a model epoch.
type Checkpoint struct {
	VersionedRecord
	Agent   string    `json:"agent"`
	Epoch   int       `json:"epoch"`
	RunID   string    `json:"run_id,omitempty"`
	SavedAt time.Time `json:"saved_at"`
	Actor   nn.Params `json:"actor"`
	Critic  nn.Params `json:"critic"`
}

// TrainingRecord summarises one training phase of one agent.
type TrainingRecord struct {
	VersionedRecord
	Agent       string    `json:"agent"`
	ModelEpoch  int       `json:"model_epoch"`
	Updates     int       `json:"updates"`
	CriticLoss  float64   `json:"critic_loss"`
	ActorLoss   float64   `json:"actor_loss"`
	MeanReward  float64   `json:"mean_reward"`
	HardSynced  bool      `json:"hard_synced"`
	Checkpoint  bool      `json:"checkpoint"`
	CompletedAt time.Time `json:"completed_at"`
}

// ArmWeights is the supervised arm-positioning network shipped with a run.
type ArmWeights struct {
	VersionedRecord
	Network nn.Params `json:"network"`
}
