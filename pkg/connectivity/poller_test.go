package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestPollingSchedulerTicks(t *testing.T) {
	mock := clock.NewMock()
	var ticks atomic.Int32
	p := newPollingScheduler(mock, 5*time.Second, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	})

	p.Start()
	if !p.Running() {
		t.Fatal("not running after Start")
	}
	// Give the loop goroutine time to arm its ticker before advancing.
	time.Sleep(10 * time.Millisecond)

	mock.Add(5 * time.Second)
	waitFor(t, "first tick", func() bool { return ticks.Load() >= 1 })
	mock.Add(10 * time.Second)
	waitFor(t, "three ticks", func() bool { return ticks.Load() >= 3 })

	p.Stop()
	if p.Running() {
		t.Error("running after Stop")
	}

	// Stop blocks until the loop exits; no tick may run afterwards.
	after := ticks.Load()
	mock.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Errorf("ticks after Stop: %d -> %d", after, got)
	}
}

func TestPollingSchedulerStartStopIdempotent(t *testing.T) {
	p := newPollingScheduler(clock.NewMock(), time.Second, func(ctx context.Context) error { return nil })

	p.Stop() // stopping a stopped poller is a no-op

	p.Start()
	p.Start() // second start is a no-op
	if !p.Running() {
		t.Fatal("not running")
	}
	p.Stop()
	p.Stop()
	if p.Running() {
		t.Fatal("still running")
	}
}

func TestPollingSchedulerRefreshesAreIndependent(t *testing.T) {
	var ran atomic.Int32
	p := newPollingScheduler(clock.NewMock(), time.Second,
		func(ctx context.Context) error { return errors.New("peers pull failed") },
		func(ctx context.Context) error { ran.Add(1); return nil },
		func(ctx context.Context) error { ran.Add(1); return nil },
	)

	// One failing refresh must not stop the siblings of the same tick.
	p.tick(context.Background())
	if got := ran.Load(); got != 2 {
		t.Errorf("sibling refreshes ran %d times, want 2", got)
	}
}
