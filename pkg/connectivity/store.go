package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/meshwire/meshwire/internal/validate"
)

const (
	// relayConnectTimeout is how long a relay connect request may stay in
	// Connecting before it is forced back to Disconnected.
	relayConnectTimeout = 30 * time.Second

	// natDetectTimeout is how long after going online NAT detection may
	// stay Unknown before it is presented as "unable to determine".
	natDetectTimeout = 30 * time.Second
)

// Config configures a Store. Gateway is required; everything else has a
// sensible default.
type Config struct {
	Gateway  Gateway
	Settings SettingsStore // nil disables bootstrap persistence
	Clock    clock.Clock   // nil means the real clock
	Metrics  *Metrics      // nil disables instrumentation

	RelayTimeout time.Duration // default relayConnectTimeout
	NATTimeout   time.Duration // default natDetectTimeout
	PollInterval time.Duration // default pollInterval
}

// Store is the connectivity state machine. It exclusively owns the session,
// relay, NAT, peer and address state; all mutation flows through its action
// methods and its single event-dispatch goroutine, serialized by one mutex.
// Consumers read value snapshots and never touch internals.
type Store struct {
	gateway  Gateway
	settings SettingsStore
	clock    clock.Clock
	metrics  *Metrics
	timeouts *TimeoutSupervisor
	poller   *pollingScheduler

	relayTimeout time.Duration
	natTimeout   time.Duration

	mu sync.Mutex
	// gen is the session generation. StopNetwork bumps it; in-flight
	// refreshes and timer callbacks from the previous session compare it
	// and drop their results.
	gen uint64

	session       NetworkSession
	sessionStart  time.Time
	relay         RelayConnection
	relaySeen     map[string]struct{} // dedup for relay.Addresses
	stats         ConnectivityStats
	natTimedOut   bool
	peers         []PeerRecord
	listenAddrs   []string
	shareAddrs    []string
	contact       string // cached shareable contact string, valid while relay is Connected
	bootstrap     []string
	backendStatus string
	lastError     string

	dispatchOnce    sync.Once
	dispatchStarted atomic.Bool
	dispatchDone    chan struct{}
}

// NewStore creates a Store. Call Start to begin consuming gateway events.
func NewStore(cfg Config) *Store {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	s := &Store{
		gateway:      cfg.Gateway,
		settings:     cfg.Settings,
		clock:        c,
		metrics:      cfg.Metrics,
		timeouts:     NewTimeoutSupervisor(c),
		relayTimeout: cfg.RelayTimeout,
		natTimeout:   cfg.NATTimeout,
		session:      NetworkSession{Status: SessionOffline},
		relay:        RelayConnection{Status: RelayDisconnected},
		relaySeen:    make(map[string]struct{}),
		stats:        ConnectivityStats{NATStatus: NATUnknown},
		dispatchDone: make(chan struct{}),
	}
	if s.relayTimeout <= 0 {
		s.relayTimeout = relayConnectTimeout
	}
	if s.natTimeout <= 0 {
		s.natTimeout = natDetectTimeout
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = pollInterval
	}
	s.poller = newPollingScheduler(c, interval,
		s.RefreshPeers,
		s.RefreshStats,
		s.RefreshAddresses,
		s.RefreshShareableAddresses,
	)
	if cfg.Settings != nil {
		s.bootstrap = append(s.bootstrap, cfg.Settings.BootstrapNodes()...)
	}
	return s
}

// Start launches the event-dispatch goroutine. It returns immediately;
// dispatch runs until the gateway closes its event channel or ctx is
// cancelled.
func (s *Store) Start(ctx context.Context) {
	s.dispatchOnce.Do(func() {
		s.dispatchStarted.Store(true)
		go s.dispatchLoop(ctx)
	})
}

// Close stops polling, cancels timers and waits for the dispatch loop to
// exit. The loop exits when the context passed to Start is cancelled or the
// gateway closes its event channel, so cancel that context (or stop the
// gateway) before calling Close. Close does not stop the backend session;
// call StopNetwork first for a clean shutdown.
func (s *Store) Close() {
	s.timeouts.CancelAll()
	s.poller.Stop()
	if s.dispatchStarted.Load() {
		<-s.dispatchDone
	}
}

// ---------------------------------------------------------------------------
// Session actions
// ---------------------------------------------------------------------------

// StartNetwork brings the session online. Requires the session to be
// Offline. On backend failure the session reverts to Offline and the error
// wraps ErrBackendUnavailable; the action stays retryable.
func (s *Store) StartNetwork(ctx context.Context) error {
	s.mu.Lock()
	if s.session.Status != SessionOffline {
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrSessionNotOffline, s.session.Status)
	}
	s.setSessionStatusLocked(SessionConnecting)
	gen := s.gen
	s.mu.Unlock()

	err := s.gateway.StartSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// StopNetwork raced us; leave whatever state it established.
		return nil
	}
	if err != nil {
		s.setSessionStatusLocked(SessionOffline)
		s.session.Running = false
		s.lastError = err.Error()
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.setSessionStatusLocked(SessionOnline)
	s.session.Running = true
	s.sessionStart = s.clock.Now()
	s.lastError = ""
	s.armNATTimeoutLocked(gen)
	s.poller.Start()
	slog.Info("store: network started")
	return nil
}

// StopNetwork takes the session offline: cancels every pending deadline,
// stops the polling loop (waiting until no further tick can run), tells the
// backend to stop, and clears per-session state. Peers, relay and NAT state
// do not survive a stop; the next session re-detects from scratch.
func (s *Store) StopNetwork(ctx context.Context) error {
	s.mu.Lock()
	if s.session.Status == SessionOffline && !s.session.Running {
		s.mu.Unlock()
		return nil
	}
	s.gen++ // orphan in-flight refreshes and timer callbacks
	s.mu.Unlock()

	s.timeouts.CancelAll()
	s.poller.Stop()

	err := s.gateway.StopSession(ctx)

	s.mu.Lock()
	s.resetSessionLocked()
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	slog.Info("store: network stopped")
	return nil
}

// resetSessionLocked clears all per-session state. Callers hold s.mu.
func (s *Store) resetSessionLocked() {
	s.setSessionStatusLocked(SessionOffline)
	s.session.Running = false
	s.sessionStart = time.Time{}
	s.relay = RelayConnection{Status: RelayDisconnected}
	s.relaySeen = make(map[string]struct{})
	s.stats = ConnectivityStats{NATStatus: NATUnknown}
	s.natTimedOut = false
	s.peers = nil
	s.listenAddrs = nil
	s.shareAddrs = nil
	s.contact = ""
	s.backendStatus = ""
	if s.metrics != nil {
		s.metrics.ConnectedPeers.Set(0)
		s.metrics.RelayAddresses.Set(0)
	}
}

func (s *Store) setSessionStatusLocked(status SessionStatus) {
	if s.session.Status == status {
		return
	}
	s.session.Status = status
	s.metrics.incSessionTransition(status)
}

// armNATTimeoutLocked registers the NAT-detection deadline for the current
// session. If natStatus is still Unknown when it fires, the store only sets
// a display flag; the status itself stays Unknown.
func (s *Store) armNATTimeoutLocked(gen uint64) {
	s.timeouts.Register(timeoutKeyNAT, s.natTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.stats.NATStatus != NATUnknown {
			return
		}
		s.natTimedOut = true
		slog.Info("store: NAT detection timed out, reachability undetermined")
	})
}

// ---------------------------------------------------------------------------
// Relay actions
// ---------------------------------------------------------------------------

// ConnectToRelay asks the backend for a reservation with the relay at addr.
// The address must carry a /p2p/ peer component; otherwise the call fails
// with ErrInvalidAddressFormat before any backend call. Success arrives
// asynchronously as a relay_connected event; if none arrives within the
// relay deadline, the connection is forced back to Disconnected.
func (s *Store) ConnectToRelay(ctx context.Context, addr string) error {
	if err := validate.RelayAddress(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddressFormat, err)
	}
	return s.startRelayConnect(ctx, func(ctx context.Context) error {
		return s.gateway.ConnectToRelay(ctx, addr)
	})
}

// ConnectToPublicRelays runs the same state machine against the well-known
// default relay set.
func (s *Store) ConnectToPublicRelays(ctx context.Context) error {
	return s.startRelayConnect(ctx, s.gateway.ConnectToPublicRelays)
}

func (s *Store) startRelayConnect(ctx context.Context, dial func(context.Context) error) error {
	s.mu.Lock()
	prev := s.relay.Status
	s.relay.Status = RelayConnecting
	gen := s.gen
	s.mu.Unlock()

	if err := dial(ctx); err != nil {
		// A failed request must not leave the relay stuck at Connecting,
		// and the deadline (not yet armed here) must not linger either.
		s.timeouts.Cancel(timeoutKeyRelay)
		s.mu.Lock()
		if s.gen == gen && s.relay.Status == RelayConnecting {
			s.relay.Status = prev
		}
		s.lastError = err.Error()
		s.mu.Unlock()
		s.metrics.incRelayConnect("request_failed")
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	s.timeouts.Register(timeoutKeyRelay, s.relayTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.relay.Status != RelayConnecting {
			return
		}
		s.relay.Status = RelayDisconnected
		s.lastError = ErrRelayTimeout.Error()
		if s.metrics != nil {
			s.metrics.RelayTimeoutsTotal.Inc()
		}
		s.metrics.incRelayConnect("timeout")
		slog.Warn("store: relay connection timed out")
	})
	return nil
}

// ShareableContactString returns the cached contact link. The cache is only
// valid while the relay is Connected; any relay status change invalidates
// it.
func (s *Store) ShareableContactString() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relay.Status != RelayConnected || s.contact == "" {
		return "", false
	}
	return s.contact, true
}

// ---------------------------------------------------------------------------
// Bootstrap configuration
// ---------------------------------------------------------------------------

// AddBootstrapNode validates and persists a bootstrap address. Re-adding an
// existing address is a silent no-op. When the session is online the
// backend is told about the node immediately; persistence failures are
// returned, backend failures only surface as RequestFailed.
func (s *Store) AddBootstrapNode(ctx context.Context, addr string) error {
	if err := validate.BootstrapAddress(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddressFormat, err)
	}

	s.mu.Lock()
	for _, existing := range s.bootstrap {
		if existing == addr {
			s.mu.Unlock()
			return nil // idempotent
		}
	}
	s.bootstrap = append(s.bootstrap, addr)
	saved := append([]string(nil), s.bootstrap...)
	online := s.session.Status == SessionOnline
	s.mu.Unlock()

	if s.settings != nil {
		if err := s.settings.SaveBootstrapNodes(saved); err != nil {
			return fmt.Errorf("persist bootstrap nodes: %w", err)
		}
	}
	if online {
		if err := s.gateway.AddBootstrapNode(ctx, addr); err != nil {
			return fmt.Errorf("%w: add bootstrap node: %v", ErrRequestFailed, err)
		}
	}
	return nil
}

// RemoveBootstrapNode removes addr from the persisted bootstrap list.
// Removing an absent address is a no-op.
func (s *Store) RemoveBootstrapNode(addr string) error {
	s.mu.Lock()
	kept := s.bootstrap[:0]
	removed := false
	for _, existing := range s.bootstrap {
		if existing == addr {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	s.bootstrap = kept
	saved := append([]string(nil), s.bootstrap...)
	s.mu.Unlock()

	if !removed || s.settings == nil {
		return nil
	}
	if err := s.settings.SaveBootstrapNodes(saved); err != nil {
		return fmt.Errorf("persist bootstrap nodes: %w", err)
	}
	return nil
}

// BootstrapNodes returns a copy of the in-memory bootstrap working list.
func (s *Store) BootstrapNodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bootstrap...)
}

// ---------------------------------------------------------------------------
// Contact / peer connection
// ---------------------------------------------------------------------------

// ConnectToPeerAddress dials a peer from user input. A contact link
// (meshwire: scheme) is resolved by the backend directly; a multiaddr with
// a /p2p/ component is dialed; anything else fails locally with
// ErrInvalidAddressFormat.
func (s *Store) ConnectToPeerAddress(ctx context.Context, input string) error {
	switch {
	case validate.IsContactLink(input):
		if _, err := validate.ContactLinkPayload(input); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddressFormat, err)
		}
		if err := s.gateway.ResolveContactLink(ctx, input); err != nil {
			return fmt.Errorf("%w: resolve contact link: %v", ErrRequestFailed, err)
		}
		return nil
	case validate.PeerAddress(input) == nil:
		if err := s.gateway.ConnectToAddress(ctx, input); err != nil {
			return fmt.Errorf("%w: connect: %v", ErrRequestFailed, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q is neither a contact link nor a peer multiaddr", ErrInvalidAddressFormat, input)
	}
}

// ---------------------------------------------------------------------------
// Refresh actions (driven by the poller and on demand)
// ---------------------------------------------------------------------------

// RefreshPeers pulls the backend's peer list and replaces the store's copy
// wholesale. Duplicate peer IDs from the backend are collapsed, first entry
// wins.
func (s *Store) RefreshPeers(ctx context.Context) error {
	gen, ok := s.refreshGen()
	if !ok {
		return nil
	}
	peers, err := s.gateway.ListPeers(ctx)
	if err != nil {
		s.metrics.incRefresh("peers", "failure")
		return s.recordRefreshError("list peers", err)
	}

	seen := make(map[string]struct{}, len(peers))
	deduped := peers[:0]
	for _, p := range peers {
		if _, dup := seen[p.PeerID]; dup {
			continue
		}
		seen[p.PeerID] = struct{}{}
		deduped = append(deduped, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	s.peers = deduped
	s.metrics.incRefresh("peers", "success")
	return nil
}

// RefreshStats pulls session counters. The NAT classification inside the
// result is applied only while ours is still Unknown; once detected it is
// monotonic for the session.
func (s *Store) RefreshStats(ctx context.Context) error {
	gen, ok := s.refreshGen()
	if !ok {
		return nil
	}
	st, err := s.gateway.Stats(ctx)
	if err != nil {
		s.metrics.incRefresh("stats", "failure")
		return s.recordRefreshError("stats", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	s.stats.ConnectedPeerCount = st.ConnectedPeerCount
	s.stats.UptimeSeconds = st.UptimeSeconds
	s.stats.BytesIn = st.BytesIn
	s.stats.BytesOut = st.BytesOut
	s.applyNATStatusLocked(st.NATStatus)
	if s.metrics != nil {
		s.metrics.ConnectedPeers.Set(float64(st.ConnectedPeerCount))
	}
	s.metrics.incRefresh("stats", "success")
	return nil
}

// RefreshAddresses pulls the local listening addresses.
func (s *Store) RefreshAddresses(ctx context.Context) error {
	gen, ok := s.refreshGen()
	if !ok {
		return nil
	}
	addrs, err := s.gateway.ListeningAddresses(ctx)
	if err != nil {
		s.metrics.incRefresh("addresses", "failure")
		return s.recordRefreshError("listening addresses", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	s.listenAddrs = addrs
	s.metrics.incRefresh("addresses", "success")
	return nil
}

// RefreshShareableAddresses pulls the externally reachable address set.
func (s *Store) RefreshShareableAddresses(ctx context.Context) error {
	gen, ok := s.refreshGen()
	if !ok {
		return nil
	}
	addrs, err := s.gateway.ShareableAddresses(ctx)
	if err != nil {
		s.metrics.incRefresh("shareable", "failure")
		return s.recordRefreshError("shareable addresses", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	s.shareAddrs = addrs
	s.metrics.incRefresh("shareable", "success")
	return nil
}

// refreshGen snapshots the current generation, declining while offline.
// Refresh pulls never run against a dead session.
func (s *Store) refreshGen() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != SessionOnline {
		return 0, false
	}
	return s.gen, true
}

// recordRefreshError notes the failure for display and wraps it as
// ErrRequestFailed. Session, relay and NAT state are untouched.
func (s *Store) recordRefreshError(op string, err error) error {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	return fmt.Errorf("%w: %s: %v", ErrRequestFailed, op, err)
}

// ---------------------------------------------------------------------------
// Event dispatch
// ---------------------------------------------------------------------------

// dispatchLoop consumes gateway events in arrival order. It is the only
// goroutine that processes events, which together with the store mutex
// serializes all mutation.
func (s *Store) dispatchLoop(ctx context.Context) {
	defer close(s.dispatchDone)

	events := s.gateway.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ctx, evt)
		}
	}
}

func (s *Store) handleEvent(ctx context.Context, evt Event) {
	s.metrics.incEvent(evt.Kind)

	switch evt.Kind {
	case EventRelayConnected:
		s.onRelayConnected(ctx, evt.Address)
	case EventNATStatusChanged:
		s.onNATStatusChanged(evt.Status)
	case EventPeerConnected:
		s.onPeerConnectedness(evt.PeerID, true)
	case EventPeerDisconnected:
		s.onPeerConnectedness(evt.PeerID, false)
	case EventPeerDiscovered:
		s.onPeerDiscovered(evt.PeerID)
	case EventPeerExpired:
		s.onPeerExpired(evt.PeerID)
	case EventListeningOn:
		s.onAddress(&s.listenAddrs, evt.Address)
	case EventExternalAddress:
		s.onAddress(&s.shareAddrs, evt.Address)
	case EventStatusChanged:
		s.mu.Lock()
		s.backendStatus = evt.Status
		s.mu.Unlock()
		slog.Debug("store: backend status", "status", evt.Status)
	case EventHolePunchSucceeded:
		if s.metrics != nil {
			s.metrics.HolePunchSucceededTotal.Inc()
		}
		s.onPeerConnectedness(evt.PeerID, true)
	default:
		slog.Debug("store: unhandled event", "kind", evt.Kind)
	}
}

// onRelayConnected completes a pending relay connect. A stale event that
// arrives after the deadline already forced Disconnected is dropped: the
// user was told the attempt failed, and accepting it would jump the relay
// straight from Disconnected to Connected.
func (s *Store) onRelayConnected(ctx context.Context, relayAddr string) {
	s.mu.Lock()
	switch s.relay.Status {
	case RelayConnecting:
		s.relay.Status = RelayConnected
		s.addRelayAddressLocked(relayAddr)
		s.contact = "" // recomputed below
		s.lastError = ""
	case RelayConnected:
		// Additional relay came up; just record its address.
		s.addRelayAddressLocked(relayAddr)
		s.mu.Unlock()
		return
	default:
		s.mu.Unlock()
		slog.Debug("store: stale relay_connected dropped", "addr", relayAddr)
		return
	}
	gen := s.gen
	s.mu.Unlock()

	s.timeouts.Cancel(timeoutKeyRelay)
	s.metrics.incRelayConnect("success")
	slog.Info("store: relay connected", "addr", relayAddr)

	// The relay changes our reachable address set and enables the contact
	// link; refresh both without blocking the dispatch loop.
	go func() {
		_ = s.RefreshAddresses(ctx)
		_ = s.RefreshShareableAddresses(ctx)
		contact, err := s.gateway.ShareableContactString(ctx)
		if err != nil {
			slog.Debug("store: contact string not ready", "error", err)
			return
		}
		s.mu.Lock()
		if s.gen == gen && s.relay.Status == RelayConnected {
			s.contact = contact
		}
		s.mu.Unlock()
	}()
}

func (s *Store) addRelayAddressLocked(addr string) {
	if addr == "" {
		return
	}
	if _, dup := s.relaySeen[addr]; dup {
		return
	}
	s.relaySeen[addr] = struct{}{}
	s.relay.Addresses = append(s.relay.Addresses, addr)
	if s.metrics != nil {
		s.metrics.RelayAddresses.Set(float64(len(s.relay.Addresses)))
	}
}

// onNATStatusChanged applies the backend's NAT classification. Unknown ->
// Public/Private happens at most once per session; later events (or junk
// statuses) are ignored.
func (s *Store) onNATStatusChanged(status string) {
	var next NATStatus
	switch NATStatus(status) {
	case NATPublic:
		next = NATPublic
	case NATPrivate:
		next = NATPrivate
	default:
		slog.Debug("store: ignoring NAT status", "status", status)
		return
	}

	s.mu.Lock()
	applied := s.applyNATStatusLocked(string(next))
	s.mu.Unlock()

	if applied {
		s.timeouts.Cancel(timeoutKeyNAT)
		slog.Info("store: NAT status detected", "status", next)
	}
}

// applyNATStatusLocked enforces the monotonic Unknown -> {Public,Private}
// transition. Returns true if the status changed.
func (s *Store) applyNATStatusLocked(status string) bool {
	if s.stats.NATStatus != NATUnknown {
		return false
	}
	switch NATStatus(status) {
	case NATPublic, NATPrivate:
		s.stats.NATStatus = NATStatus(status)
		s.natTimedOut = false
		return true
	}
	return false
}

// onPeerConnectedness flips the connected flag for a known peer, or records
// a new one. The authoritative list still comes from RefreshPeers; events
// only keep the display current between polls.
func (s *Store) onPeerConnectedness(peerID string, connected bool) {
	if peerID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.peers {
		if s.peers[i].PeerID == peerID {
			s.peers[i].Connected = connected
			return
		}
	}
	if connected {
		s.peers = append(s.peers, PeerRecord{
			PeerID:       peerID,
			Connected:    true,
			DiscoveredAt: s.clock.Now(),
		})
	}
}

func (s *Store) onPeerDiscovered(peerID string) {
	if peerID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.peers {
		if s.peers[i].PeerID == peerID {
			return
		}
	}
	s.peers = append(s.peers, PeerRecord{
		PeerID:       peerID,
		DiscoveredAt: s.clock.Now(),
	})
}

func (s *Store) onPeerExpired(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.peers {
		if s.peers[i].PeerID == peerID {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			return
		}
	}
}

func (s *Store) onAddress(list *[]string, addr string) {
	if addr == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range *list {
		if existing == addr {
			return
		}
	}
	*list = append(*list, addr)
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Snapshot returns a read-only copy of the full connectivity state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Session:              s.session,
		Stats:                s.stats,
		NATDetectionTimedOut: s.natTimedOut,
		BackendStatus:        s.backendStatus,
		LastError:            s.lastError,
		Relay: RelayConnection{
			Status:    s.relay.Status,
			Addresses: append([]string(nil), s.relay.Addresses...),
		},
		ListeningAddresses: append([]string(nil), s.listenAddrs...),
		ShareableAddresses: append([]string(nil), s.shareAddrs...),
		BootstrapNodes:     append([]string(nil), s.bootstrap...),
	}
	if s.session.Status == SessionOnline && !s.sessionStart.IsZero() {
		snap.Stats.UptimeSeconds = int64(s.clock.Since(s.sessionStart).Seconds())
	}
	snap.Peers = make([]PeerSnapshot, 0, len(s.peers))
	for _, p := range s.peers {
		rec := p
		rec.Addresses = append([]string(nil), p.Addresses...)
		snap.Peers = append(snap.Peers, PeerSnapshot{
			PeerRecord: rec,
			Friendly:   DeriveFriendlyIdentity(p.PeerID),
		})
	}
	return snap
}

// PollerRunning reports whether the refresh loop is active. It is true if
// and only if the session is online.
func (s *Store) PollerRunning() bool {
	return s.poller.Running()
}
