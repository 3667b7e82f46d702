package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer drives the scheduler without real time.
type fakeTimer struct {
	fn      func()
	stopped bool
}

func (f *fakeTimer) Cancel() bool {
	f.stopped = true
	return true
}

func newFakeScheduler() (*TaskScheduler, *[]*fakeTimer) {
	timers := &[]*fakeTimer{}
	s := NewTaskScheduler()
	var mu sync.Mutex
	s.After = func(d time.Duration, fn func()) Canceler {
		t := &fakeTimer{fn: fn}
		mu.Lock()
		*timers = append(*timers, t)
		mu.Unlock()
		return t
	}
	return s, timers
}

func TestSchedulerFires(t *testing.T) {
	s, timers := newFakeScheduler()
	fired := false
	s.Schedule(time.Second, func() { fired = true })

	require.Len(t, *timers, 1)
	assert.Equal(t, 1, s.Pending())

	(*timers)[0].fn()
	assert.True(t, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerCancel(t *testing.T) {
	s, timers := newFakeScheduler()
	fired := false
	task := s.Schedule(time.Second, func() { fired = true })
	task.Cancel()

	assert.True(t, (*timers)[0].stopped)
	assert.Equal(t, 0, s.Pending())

	// Even a timer that already escaped Stop must not run the callback.
	(*timers)[0].fn()
	assert.False(t, fired)
}

func TestSchedulerShutdown(t *testing.T) {
	s, timers := newFakeScheduler()
	fired := 0
	s.Schedule(time.Second, func() { fired++ })
	s.Schedule(time.Second, func() { fired++ })

	s.Shutdown()
	assert.Equal(t, 0, s.Pending())
	for _, ft := range *timers {
		assert.True(t, ft.stopped)
		ft.fn()
	}
	assert.Equal(t, 0, fired)

	assert.Nil(t, s.Schedule(time.Second, func() {}))
}

func TestSchedulerNilTaskCancel(t *testing.T) {
	var task *Task
	task.Cancel() // must not panic
}

func TestSchedulerRealTimer(t *testing.T) {
	s := NewTaskScheduler()
	done := make(chan struct{})
	s.Schedule(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never fired")
	}
}
