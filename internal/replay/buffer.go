package replay

import (
	"fmt"
	"math/rand"
	"sync"
)

// Buffer is a fixed-capacity ring of transitions. Once full, each push
// overwrites the oldest entry.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	entries  []Transition
	next     int
	pushed   int
	rng      *rand.Rand
}

func NewBuffer(capacity int, rng *rand.Rand) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("replay buffer capacity must be positive, got %d", capacity)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Buffer{
		capacity: capacity,
		entries:  make([]Transition, 0, capacity),
		rng:      rng,
	}, nil
}

func (b *Buffer) Push(t Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t = t.clone()
	if len(b.entries) < b.capacity {
		b.entries = append(b.entries, t)
	} else {
		b.entries[b.next] = t
	}
	b.next = (b.next + 1) % b.capacity
	b.pushed++
}

// Sample draws n transitions uniformly at random, with replacement.
func (b *Buffer) Sample(n int) ([]Transition, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		return nil, fmt.Errorf("sample from empty replay buffer")
	}
	out := make([]Transition, n)
	for i := range out {
		out[i] = b.entries[b.rng.Intn(len(b.entries))].clone()
	}
	return out, nil
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Buffer) Cap() int { return b.capacity }

// Pushed counts every push since construction, including overwritten ones.
func (b *Buffer) Pushed() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pushed
}

// Entries returns the stored transitions oldest first.
func (b *Buffer) Entries() []Transition {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Transition, 0, len(b.entries))
	start := 0
	if len(b.entries) == b.capacity {
		start = b.next
	}
	for i := 0; i < len(b.entries); i++ {
		out = append(out, b.entries[(start+i)%len(b.entries)].clone())
	}
	return out
}

// MeanReward is the average reward of the stored transitions, 0 when empty.
func (b *Buffer) MeanReward() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range b.entries {
		sum += t.Reward
	}
	return sum / float64(len(b.entries))
}
