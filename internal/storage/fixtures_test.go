package storage

import (
	"time"

	"paddlerl/internal/model"
	"paddlerl/internal/nn"
)

func testParams(seed float64) nn.Params {
	return nn.Params{Layers: []nn.LayerParams{{
		Inputs:     2,
		Outputs:    1,
		Activation: "identity",
		Weights:    []float64{seed, seed + 1},
		Bias:       []float64{seed / 2},
	}}}
}

func testCheckpoint(agent string, epoch int) model.Checkpoint {
	return model.Checkpoint{
		VersionedRecord: Versioned(),
		Agent:           agent,
		Epoch:           epoch,
		RunID:           "run-1",
		SavedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Actor:           testParams(float64(epoch)),
		Critic:          testParams(float64(epoch) + 0.5),
	}
}

func testRecord(agent string, epoch int) model.TrainingRecord {
	return model.TrainingRecord{
		VersionedRecord: Versioned(),
		Agent:           agent,
		ModelEpoch:      epoch,
		Updates:         50,
		CriticLoss:      0.25,
		ActorLoss:       -0.5,
		MeanReward:      0.1,
	}
}
