package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"paddlerl/internal/model"
)

const historyDir = "history"

// DirStore keeps one directory per agent with a JSON file per checkpoint
// epoch: <root>/<agent>/<agent>_<epoch>.json.
type DirStore struct {
	root string

	mu sync.Mutex
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Init(_ context.Context) error {
	if s.root == "" {
		return errors.New("checkpoint directory is required")
	}
	return os.MkdirAll(filepath.Join(s.root, historyDir), 0o755)
}

func (s *DirStore) SaveCheckpoint(_ context.Context, checkpoint model.Checkpoint) error {
	if err := validAgentName(checkpoint.Agent); err != nil {
		return err
	}
	payload, err := EncodeCheckpoint(checkpoint)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, checkpoint.Agent)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeFileAtomic(s.checkpointPath(checkpoint.Agent, checkpoint.Epoch), payload)
}

func (s *DirStore) GetCheckpoint(_ context.Context, agent string, epoch int) (model.Checkpoint, bool, error) {
	if err := validAgentName(agent); err != nil {
		return model.Checkpoint{}, false, err
	}
	data, err := os.ReadFile(s.checkpointPath(agent, epoch))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, err
	}
	checkpoint, err := DecodeCheckpoint(data)
	if err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("decode checkpoint %s@%d: %w", agent, epoch, err)
	}
	return checkpoint, true, nil
}

func (s *DirStore) LatestCheckpoint(ctx context.Context, agent string) (model.Checkpoint, bool, error) {
	epochs, err := s.ListCheckpointEpochs(ctx, agent)
	if err != nil || len(epochs) == 0 {
		return model.Checkpoint{}, false, err
	}
	return s.GetCheckpoint(ctx, agent, epochs[len(epochs)-1])
}

func (s *DirStore) ListCheckpointEpochs(_ context.Context, agent string) ([]int, error) {
	if err := validAgentName(agent); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, agent))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	prefix := agent + "_"
	epochs := make([]int, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		epoch, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
		if err != nil {
			continue
		}
		epochs = append(epochs, epoch)
	}
	sort.Ints(epochs)
	return epochs, nil
}

func (s *DirStore) AppendTrainingRecord(ctx context.Context, runID string, record model.TrainingRecord) error {
	if err := validAgentName(runID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, _, err := s.readHistory(runID)
	if err != nil {
		return err
	}
	history = append(history, record)
	payload, err := EncodeTrainingHistory(history)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.historyPath(runID), payload)
}

func (s *DirStore) GetTrainingHistory(_ context.Context, runID string) ([]model.TrainingRecord, bool, error) {
	if err := validAgentName(runID); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHistory(runID)
}

func (s *DirStore) readHistory(runID string) ([]model.TrainingRecord, bool, error) {
	data, err := os.ReadFile(s.historyPath(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	history, err := DecodeTrainingHistory(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode training history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *DirStore) checkpointPath(agent string, epoch int) string {
	return filepath.Join(s.root, agent, fmt.Sprintf("%s_%d.json", agent, epoch))
}

func (s *DirStore) historyPath(runID string) string {
	return filepath.Join(s.root, historyDir, runID+".json")
}

func validAgentName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid storage key %q", name)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
