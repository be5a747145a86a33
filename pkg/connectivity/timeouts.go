package connectivity

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timeout keys used by the store. Each key holds at most one live deadline.
const (
	timeoutKeyRelay = "relay"
	timeoutKeyNAT   = "nat"
)

// TimeoutSupervisor is a keyed registry of cancellable deadlines.
// Re-registering a key replaces any pending timer for that key, so a key
// never has more than one live deadline. All methods are safe for
// concurrent use.
type TimeoutSupervisor struct {
	clock clock.Clock

	mu     sync.Mutex
	timers map[string]*clock.Timer
}

// NewTimeoutSupervisor creates a supervisor on the given clock.
// Pass clock.New() in production, clock.NewMock() in tests.
func NewTimeoutSupervisor(c clock.Clock) *TimeoutSupervisor {
	return &TimeoutSupervisor{
		clock:  c,
		timers: make(map[string]*clock.Timer),
	}
}

// Register arms a deadline under key. If a timer is already pending for the
// key it is cancelled and replaced. onTimeout runs on the clock's timer
// goroutine after d elapses, unless Cancel/CancelAll/a re-Register wins.
func (ts *TimeoutSupervisor) Register(key string, d time.Duration, onTimeout func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if t, ok := ts.timers[key]; ok {
		t.Stop()
	}
	var timer *clock.Timer
	timer = ts.clock.AfterFunc(d, func() {
		ts.mu.Lock()
		// A re-Register may have replaced us between firing and acquiring
		// the lock; only the current occupant of the key may proceed.
		if ts.timers[key] == timer {
			delete(ts.timers, key)
		} else {
			ts.mu.Unlock()
			return
		}
		ts.mu.Unlock()
		onTimeout()
	})
	ts.timers[key] = timer
}

// Cancel stops the pending timer for key, if any. Returns true if a timer
// was pending.
func (ts *TimeoutSupervisor) Cancel(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t, ok := ts.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(ts.timers, key)
	return true
}

// CancelAll stops every pending timer. Called when the session stops.
func (ts *TimeoutSupervisor) CancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}

// Pending reports whether a timer is currently armed for key.
func (ts *TimeoutSupervisor) Pending(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.timers[key]
	return ok
}
