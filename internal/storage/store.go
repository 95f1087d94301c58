package storage

import (
	"context"

	"paddlerl/internal/model"
)

// Store persists agent checkpoints and per-run training history.
type Store interface {
	Init(ctx context.Context) error
	SaveCheckpoint(ctx context.Context, checkpoint model.Checkpoint) error
	GetCheckpoint(ctx context.Context, agent string, epoch int) (model.Checkpoint, bool, error)
	LatestCheckpoint(ctx context.Context, agent string) (model.Checkpoint, bool, error)
	ListCheckpointEpochs(ctx context.Context, agent string) ([]int, error)
	AppendTrainingRecord(ctx context.Context, runID string, record model.TrainingRecord) error
	GetTrainingHistory(ctx context.Context, runID string) ([]model.TrainingRecord, bool, error)
}

// Versioned stamps the current schema and codec versions.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}
