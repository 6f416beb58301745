package server

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// timerSet is a keyed timer registry over a quartz clock. Scheduling a key
// replaces its previous timer; CancelAll runs at teardown. Callbacks pass
// through wrap, which the room uses to re-enter under its lock.
type timerSet struct {
	clock quartz.Clock
	wrap  func(fn func())

	mu     sync.Mutex
	timers map[string]*quartz.Timer
}

func newTimerSet(clock quartz.Clock, wrap func(fn func())) *timerSet {
	if wrap == nil {
		wrap = func(fn func()) { fn() }
	}
	return &timerSet{
		clock:  clock,
		wrap:   wrap,
		timers: make(map[string]*quartz.Timer),
	}
}

// Schedule arms fn to run after d, replacing any timer with the same key.
func (ts *timerSet) Schedule(key string, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if old, ok := ts.timers[key]; ok {
		old.Stop()
	}
	ts.timers[key] = ts.clock.AfterFunc(d, func() {
		ts.mu.Lock()
		delete(ts.timers, key)
		ts.mu.Unlock()
		ts.wrap(fn)
	})
}

// Cancel stops the timer with the given key, if armed.
func (ts *timerSet) Cancel(key string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.timers[key]; ok {
		t.Stop()
		delete(ts.timers, key)
	}
}

// CancelAll stops every outstanding timer.
func (ts *timerSet) CancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}
