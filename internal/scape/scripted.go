package scape

import (
	"context"
	"errors"
	"sync"

	"paddlerl/internal/arm"
	"paddlerl/internal/state"
)

var ErrScriptExhausted = errors.New("scripted simulator has no more frames")

type SentJoints struct {
	// Tick is the index of the last frame served before the command was sent.
	Tick   int
	Joints arm.Joints
}

// Scripted replays a fixed sequence of observations and records every joint
// command, for deterministic runs of the pipeline.
type Scripted struct {
	mu     sync.Mutex
	frames []state.Vector
	served int
	sent   []SentJoints
}

func NewScripted(frames ...state.Vector) *Scripted {
	return &Scripted{frames: append([]state.Vector(nil), frames...)}
}

// Append queues more frames after the current script.
func (s *Scripted) Append(frames ...state.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

func (s *Scripted) State(ctx context.Context) (state.Vector, error) {
	if err := ctx.Err(); err != nil {
		return state.Vector{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served >= len(s.frames) {
		return state.Vector{}, ErrScriptExhausted
	}
	v := s.frames[s.served]
	s.served++
	return v, nil
}

func (s *Scripted) SendJoints(ctx context.Context, joints arm.Joints) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, SentJoints{Tick: s.served - 1, Joints: joints})
	return nil
}

// Served is the number of frames handed out so far.
func (s *Scripted) Served() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served
}

func (s *Scripted) Sent() []SentJoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentJoints(nil), s.sent...)
}

func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.served
}
