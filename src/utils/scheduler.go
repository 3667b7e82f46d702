package utils

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// TaskScheduler wraps one-shot timers behind an owner that can cancel them in
// bulk. Connection teardown and shutdown cancel every task scheduled against
// the torn-down owner, so no callback ever fires against destroyed state.
// -----------------------------------------------------------------------------

type TaskScheduler struct {
	mu     sync.Mutex
	seq    uint64
	tasks  map[uint64]*Task
	closed bool

	// After is the timer factory; tests swap it to drive virtual time.
	After func(d time.Duration, fn func()) Canceler
}

// Canceler stops a pending timer.
type Canceler interface {
	Cancel() bool
}

// Task is one scheduled callback.
type Task struct {
	id    uint64
	s     *TaskScheduler
	timer Canceler
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Cancel() bool { return r.t.Stop() }

func NewTaskScheduler() *TaskScheduler {
	return &TaskScheduler{
		tasks: make(map[uint64]*Task),
		After: func(d time.Duration, fn func()) Canceler {
			return realTimer{t: time.AfterFunc(d, fn)}
		},
	}
}

// Schedule runs fn after d unless cancelled. Returns nil after Shutdown.
func (s *TaskScheduler) Schedule(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	task := &Task{id: s.seq, s: s}
	s.tasks[task.id] = task
	s.mu.Unlock()

	task.timer = s.After(d, func() {
		s.mu.Lock()
		_, pending := s.tasks[task.id]
		delete(s.tasks, task.id)
		s.mu.Unlock()
		if pending {
			fn()
		}
	})
	return task
}

// Cancel stops the task if it has not fired yet.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.s.mu.Lock()
	delete(t.s.tasks, t.id)
	t.s.mu.Unlock()
	if t.timer != nil {
		t.timer.Cancel()
	}
}

// Shutdown cancels every pending task and rejects new ones.
func (s *TaskScheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = make(map[uint64]*Task)
	s.mu.Unlock()
	for _, t := range tasks {
		if t.timer != nil {
			t.timer.Cancel()
		}
	}
}

// Pending reports the number of scheduled, unfired tasks.
func (s *TaskScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
