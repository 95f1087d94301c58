package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"paddlerl/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	checkpoints map[string]map[int]model.Checkpoint
	history     map[string][]model.TrainingRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.checkpoints = make(map[string]map[int]model.Checkpoint)
	s.history = make(map[string][]model.TrainingRecord)
	return nil
}

func (s *MemoryStore) SaveCheckpoint(_ context.Context, checkpoint model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	byEpoch, ok := s.checkpoints[checkpoint.Agent]
	if !ok {
		byEpoch = make(map[int]model.Checkpoint)
		s.checkpoints[checkpoint.Agent] = byEpoch
	}
	byEpoch[checkpoint.Epoch] = cloneCheckpoint(checkpoint)
	return nil
}

func (s *MemoryStore) GetCheckpoint(_ context.Context, agent string, epoch int) (model.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkpoint, ok := s.checkpoints[agent][epoch]
	if !ok {
		return model.Checkpoint{}, false, nil
	}
	return cloneCheckpoint(checkpoint), true, nil
}

func (s *MemoryStore) LatestCheckpoint(ctx context.Context, agent string) (model.Checkpoint, bool, error) {
	epochs, err := s.ListCheckpointEpochs(ctx, agent)
	if err != nil || len(epochs) == 0 {
		return model.Checkpoint{}, false, err
	}
	return s.GetCheckpoint(ctx, agent, epochs[len(epochs)-1])
}

func (s *MemoryStore) ListCheckpointEpochs(_ context.Context, agent string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	epochs := make([]int, 0, len(s.checkpoints[agent]))
	for epoch := range s.checkpoints[agent] {
		epochs = append(epochs, epoch)
	}
	sort.Ints(epochs)
	return epochs, nil
}

func (s *MemoryStore) AppendTrainingRecord(_ context.Context, runID string, record model.TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.history[runID] = append(s.history[runID], record)
	return nil
}

func (s *MemoryStore) GetTrainingHistory(_ context.Context, runID string) ([]model.TrainingRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TrainingRecord, len(history))
	copy(copied, history)
	return copied, true, nil
}

var errNotInitialized = errors.New("store is not initialized")

func cloneCheckpoint(c model.Checkpoint) model.Checkpoint {
	c.Actor = cloneParams(c.Actor)
	c.Critic = cloneParams(c.Critic)
	return c
}
