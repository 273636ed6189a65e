// ABOUTME: In-process delay scheduler with fire-once tasks addressable by ticket id
// ABOUTME: Backs temporary role revocation; tasks do not survive a restart

package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler runs callbacks once after a delay. Every task gets a ticket id
// so it can be inspected or cancelled.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*task
	logger  *slog.Logger
	stopped bool
}

type task struct {
	timer *time.Timer
	due   time.Time
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pending: make(map[string]*task),
		logger:  logger.With("component", "scheduler"),
	}
}

// Schedule runs fn once after delay and returns its ticket id. After Stop,
// Schedule returns an empty id and fn never runs.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("schedule after stop ignored", "delay", delay)
		return ""
	}

	id := uuid.NewString()
	t := &task{due: time.Now().Add(delay)}
	t.timer = time.AfterFunc(delay, func() { s.fire(id, fn) })
	s.pending[id] = t

	s.logger.Debug("task scheduled", "ticket", id, "due", t.due)
	return id
}

func (s *Scheduler) fire(id string, fn func()) {
	s.mu.Lock()
	if _, ok := s.pending[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "ticket", id, "panic", r)
		}
	}()
	fn()
}

// Cancel stops a pending task. It reports false when the task already ran,
// was cancelled, or never existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	return t.timer.Stop()
}

// Due returns when the task fires.
func (s *Scheduler) Due(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[id]
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}

// Pending returns the number of tasks that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop abandons every pending task and returns how many it dropped. It is
// safe to call multiple times; later calls return 0.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0
	}
	s.stopped = true

	// A task whose timer already fired but has not reached fire is dropped
	// too; fire skips ids missing from pending.
	dropped := len(s.pending)
	for id, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, id)
	}
	s.logger.Info("scheduler stopped", "abandoned", dropped)
	return dropped
}
