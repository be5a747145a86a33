package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

// pollInterval is how often the refresh loop pulls peers, stats and
// addresses from the backend while the session is online.
const pollInterval = 5 * time.Second

// pollFunc is one independent refresh pull. The four refreshes of a tick
// have no ordering dependency between them.
type pollFunc func(ctx context.Context) error

// pollingScheduler runs the fixed-interval refresh loop. It is active if
// and only if the session is online: the store starts it on the
// Connecting -> Online transition and stops it in StopNetwork. Stop blocks
// until the loop has exited, so no tick runs after Stop returns.
type pollingScheduler struct {
	clock    clock.Clock
	interval time.Duration
	refresh  []pollFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newPollingScheduler(c clock.Clock, interval time.Duration, refresh ...pollFunc) *pollingScheduler {
	return &pollingScheduler{
		clock:    c,
		interval: interval,
		refresh:  refresh,
	}
}

// Start launches the tick loop. No-op if already running.
func (p *pollingScheduler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
	slog.Debug("poller: started", "interval", p.interval)
}

// Stop cancels the loop and waits for it to exit. No-op if not running.
func (p *pollingScheduler) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Debug("poller: stopped")
}

// Running reports whether the tick loop is active.
func (p *pollingScheduler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *pollingScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs all refreshes concurrently. The pulls are independent: one
// failing does not cancel the others, it only logs, and the next tick
// retries. Each pull replaces its own slice of state wholesale, so nothing
// depends on their relative order.
func (p *pollingScheduler) tick(ctx context.Context) {
	var g errgroup.Group
	for _, fn := range p.refresh {
		g.Go(func() error {
			return fn(ctx)
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Debug("poller: refresh failed", "error", err)
	}
}
