package connectivity

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestTimeoutSupervisorFires(t *testing.T) {
	mock := clock.NewMock()
	ts := NewTimeoutSupervisor(mock)

	var fired atomic.Int32
	ts.Register("relay", 30*time.Second, func() { fired.Add(1) })

	if !ts.Pending("relay") {
		t.Fatal("timer not pending after Register")
	}

	mock.Add(29 * time.Second)
	if fired.Load() != 0 {
		t.Fatal("timer fired early")
	}
	mock.Add(time.Second)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}
	if ts.Pending("relay") {
		t.Error("timer still pending after firing")
	}
}

func TestTimeoutSupervisorCancel(t *testing.T) {
	mock := clock.NewMock()
	ts := NewTimeoutSupervisor(mock)

	var fired atomic.Int32
	ts.Register("relay", time.Minute, func() { fired.Add(1) })

	if !ts.Cancel("relay") {
		t.Fatal("Cancel returned false for a pending timer")
	}
	if ts.Cancel("relay") {
		t.Error("Cancel returned true for an absent timer")
	}

	mock.Add(2 * time.Minute)
	if fired.Load() != 0 {
		t.Errorf("cancelled timer fired %d times", fired.Load())
	}
}

func TestTimeoutSupervisorReplaceResetsDeadline(t *testing.T) {
	mock := clock.NewMock()
	ts := NewTimeoutSupervisor(mock)

	var first, second atomic.Int32
	ts.Register("relay", 10*time.Second, func() { first.Add(1) })
	mock.Add(5 * time.Second)
	ts.Register("relay", 10*time.Second, func() { second.Add(1) })

	// The original deadline would have been at t=10s.
	mock.Add(5 * time.Second)
	if first.Load() != 0 || second.Load() != 0 {
		t.Fatalf("fired early: first=%d second=%d", first.Load(), second.Load())
	}

	mock.Add(5 * time.Second)
	if first.Load() != 0 {
		t.Error("replaced timer fired")
	}
	if second.Load() != 1 {
		t.Errorf("replacement fired %d times, want 1", second.Load())
	}
}

func TestTimeoutSupervisorCancelAll(t *testing.T) {
	mock := clock.NewMock()
	ts := NewTimeoutSupervisor(mock)

	var fired atomic.Int32
	ts.Register("relay", time.Minute, func() { fired.Add(1) })
	ts.Register("nat", time.Minute, func() { fired.Add(1) })

	ts.CancelAll()
	mock.Add(time.Hour)

	if fired.Load() != 0 {
		t.Errorf("timers fired after CancelAll: %d", fired.Load())
	}
	if ts.Pending("relay") || ts.Pending("nat") {
		t.Error("timers still pending after CancelAll")
	}
}

func TestTimeoutSupervisorKeysAreIndependent(t *testing.T) {
	mock := clock.NewMock()
	ts := NewTimeoutSupervisor(mock)

	var relay, nat atomic.Int32
	ts.Register("relay", 10*time.Second, func() { relay.Add(1) })
	ts.Register("nat", 30*time.Second, func() { nat.Add(1) })

	ts.Cancel("relay")
	mock.Add(time.Minute)

	if relay.Load() != 0 {
		t.Error("cancelled relay timer fired")
	}
	if nat.Load() != 1 {
		t.Errorf("nat timer fired %d times, want 1", nat.Load())
	}
}
