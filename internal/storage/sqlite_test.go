//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreCheckpointAndHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "paddlerl.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, epoch := range []int{10, 20} {
		if err := store.SaveCheckpoint(ctx, testCheckpoint("smash_agent", epoch)); err != nil {
			t.Fatalf("save checkpoint: %v", err)
		}
	}
	// Overwrite keeps a single row per (agent, epoch).
	if err := store.SaveCheckpoint(ctx, testCheckpoint("smash_agent", 20)); err != nil {
		t.Fatalf("resave checkpoint: %v", err)
	}

	epochs, err := store.ListCheckpointEpochs(ctx, "smash_agent")
	if err != nil {
		t.Fatalf("list epochs: %v", err)
	}
	if len(epochs) != 2 {
		t.Fatalf("unexpected epochs: %v", epochs)
	}

	latest, ok, err := store.LatestCheckpoint(ctx, "smash_agent")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%t err=%v", ok, err)
	}
	if latest.Epoch != 20 || latest.Actor.Layers[0].Weights[0] != 20 {
		t.Fatalf("unexpected latest checkpoint: %+v", latest)
	}

	if _, ok, err := store.GetCheckpoint(ctx, "smash_agent", 30); err != nil || ok {
		t.Fatalf("expected missing epoch 30, ok=%t err=%v", ok, err)
	}

	for _, epoch := range []int{2, 4} {
		if err := store.AppendTrainingRecord(ctx, "run-1", testRecord("smash_agent", epoch)); err != nil {
			t.Fatalf("append record: %v", err)
		}
	}
	history, ok, err := store.GetTrainingHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("history: ok=%t err=%v", ok, err)
	}
	if len(history) != 2 || history[0].ModelEpoch != 2 || history[1].ModelEpoch != 4 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if err := store.SaveCheckpoint(context.Background(), testCheckpoint("a", 1)); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
