package storage

import (
	"encoding/json"
	"errors"

	"paddlerl/internal/model"
	"paddlerl/internal/nn"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeCheckpoint(c model.Checkpoint) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeCheckpoint(data []byte) (model.Checkpoint, error) {
	var checkpoint model.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return model.Checkpoint{}, err
	}
	if err := checkVersion(checkpoint.VersionedRecord); err != nil {
		return model.Checkpoint{}, err
	}
	return checkpoint, nil
}

func EncodeTrainingHistory(records []model.TrainingRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeTrainingHistory(data []byte) ([]model.TrainingRecord, error) {
	var records []model.TrainingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func EncodeArmWeights(w model.ArmWeights) ([]byte, error) {
	return json.Marshal(w)
}

func DecodeArmWeights(data []byte) (model.ArmWeights, error) {
	var weights model.ArmWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return model.ArmWeights{}, err
	}
	if err := checkVersion(weights.VersionedRecord); err != nil {
		return model.ArmWeights{}, err
	}
	return weights, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func cloneParams(p nn.Params) nn.Params {
	out := nn.Params{Layers: make([]nn.LayerParams, len(p.Layers))}
	for i, l := range p.Layers {
		l.Weights = append([]float64(nil), l.Weights...)
		l.Bias = append([]float64(nil), l.Bias...)
		out.Layers[i] = l
	}
	return out
}
