package download

import "sync"

// Snapshot is an immutable copy of the engine state.
type Snapshot struct {
	Completed bool    `json:"completed"`
	HasErrors bool    `json:"has_errors"`
	Progress  int     `json:"progress"`
	Failure   Failure `json:"failure"`
}

// state is written only by the worker and read from any goroutine.
type state struct {
	mu   sync.RWMutex
	snap Snapshot
}

func (s *state) get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

func (s *state) reset() {
	s.set(Snapshot{})
}

func (s *state) setProgress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Progress = percent
}

func (s *state) succeed() {
	s.set(Snapshot{Completed: true, Progress: 100})
}

// fail keeps the hasErrors => progress == 0 invariant.
func (s *state) fail(f Failure) {
	s.set(Snapshot{Completed: true, HasErrors: true, Failure: f})
}

func (s *state) set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = snap
}
