// Package backend implements the connectivity.Gateway interface on
// go-libp2p. It owns the libp2p host, maps the host's event bus onto the
// gateway event stream, and performs the actual dialing, relay
// reservations, DHT bootstrap and LAN discovery.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	libp2pmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	circuitclient "github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/client"
	"github.com/libp2p/go-libp2p/p2p/protocol/holepunch"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

const (
	// dialTimeout bounds every background dial the gateway performs.
	dialTimeout = 30 * time.Second

	// eventBuffer is the gateway event channel capacity. Events beyond a
	// stalled consumer are dropped with a warning rather than blocking the
	// host's bus.
	eventBuffer = 128
)

// Config configures the libp2p gateway.
type Config struct {
	ListenAddresses []string
	RelayAddresses  []string // well-known default relay set
	BootstrapNodes  []string
	LocalDiscovery  bool
	UserAgent       string
}

// Gateway is the production connectivity.Gateway backed by a libp2p host.
// The host exists only while a session runs; StartSession creates it and
// StopSession tears it down. The event channel lives for the gateway's
// lifetime, spanning session restarts.
type Gateway struct {
	cfg    Config
	events chan connectivity.Event

	mu        sync.Mutex
	host      host.Host
	dht       *dht.IpfsDHT
	bandwidth *libp2pmetrics.BandwidthCounter
	started   time.Time
	natStatus string
	circuits  []string // circuit addresses of confirmed relay reservations
	firstSeen map[peer.ID]time.Time
	mdns      *mdnsDiscovery
	sessCtx   context.Context
	sessStop  context.CancelFunc
	sessWG    sync.WaitGroup

	closeOnce sync.Once
}

// New creates a Gateway. No network resources exist until StartSession.
func New(cfg Config) *Gateway {
	return &Gateway{
		cfg:       cfg,
		events:    make(chan connectivity.Event, eventBuffer),
		firstSeen: make(map[peer.ID]time.Time),
	}
}

// Events returns the gateway's event stream.
func (g *Gateway) Events() <-chan connectivity.Event {
	return g.events
}

// Close releases the gateway for good: stops any running session and closes
// the event channel. The gateway cannot be reused afterwards.
func (g *Gateway) Close() error {
	err := g.StopSession(context.Background())
	g.closeOnce.Do(func() { close(g.events) })
	return err
}

// StartSession creates the libp2p host, starts the DHT, connects bootstrap
// nodes and begins LAN discovery. Idempotent start attempts while a host
// exists fail.
func (g *Gateway) StartSession(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.host != nil {
		return fmt.Errorf("session already running")
	}

	bw := libp2pmetrics.NewBandwidthCounter()

	hostOpts := []libp2p.Option{
		libp2p.Transport(libp2pquic.NewTransport),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.ListenAddrStrings(g.cfg.ListenAddresses...),
		libp2p.BandwidthReporter(bw),
		libp2p.EnableAutoNATv2(),
		libp2p.EnableHolePunching(holepunch.WithTracer(&holePunchTracer{gw: g})),
		libp2p.NATPortMap(),
	}
	if g.cfg.UserAgent != "" {
		hostOpts = append(hostOpts, libp2p.UserAgent(g.cfg.UserAgent))
	}
	if len(g.cfg.RelayAddresses) > 0 {
		relayInfos, err := parseAddrInfos(g.cfg.RelayAddresses)
		if err != nil {
			return fmt.Errorf("parse relay addresses: %w", err)
		}
		hostOpts = append(hostOpts, libp2p.EnableAutoRelayWithStaticRelays(relayInfos))
	}

	h, err := libp2p.New(hostOpts...)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}

	sessCtx, sessStop := context.WithCancel(context.Background())

	var dhtOpts []dht.Option
	dhtOpts = append(dhtOpts, dht.Mode(dht.ModeClient))
	if infos, err := parseAddrInfos(g.cfg.BootstrapNodes); err == nil && len(infos) > 0 {
		dhtOpts = append(dhtOpts, dht.BootstrapPeers(infos...))
	}
	kdht, err := dht.New(sessCtx, h, dhtOpts...)
	if err != nil {
		sessStop()
		h.Close()
		return fmt.Errorf("create dht: %w", err)
	}

	g.host = h
	g.dht = kdht
	g.bandwidth = bw
	g.started = time.Now()
	g.natStatus = string(connectivity.NATUnknown)
	g.circuits = nil
	g.firstSeen = make(map[peer.ID]time.Time)
	g.sessCtx = sessCtx
	g.sessStop = sessStop

	g.sessWG.Add(1)
	go g.busLoop(sessCtx, h)

	if g.cfg.LocalDiscovery {
		g.mdns = newMDNSDiscovery(g, h)
		g.mdns.Start(sessCtx)
	}

	g.sessWG.Add(1)
	go func() {
		defer g.sessWG.Done()
		g.bootstrap(sessCtx, h, kdht)
	}()

	g.emit(connectivity.Event{Kind: connectivity.EventStatusChanged, Status: "online"})
	slog.Info("backend: session started", "peer", h.ID())
	return nil
}

// StopSession tears the host down. Stopping a stopped session is a no-op.
func (g *Gateway) StopSession(ctx context.Context) error {
	g.mu.Lock()
	h, kdht, stop, mdns := g.host, g.dht, g.sessStop, g.mdns
	g.host, g.dht, g.bandwidth, g.sessStop, g.mdns = nil, nil, nil, nil, nil
	g.circuits = nil
	g.mu.Unlock()

	if h == nil {
		return nil
	}
	stop()
	if mdns != nil {
		mdns.Stop()
	}
	g.sessWG.Wait()

	var firstErr error
	if err := kdht.Close(); err != nil {
		firstErr = err
	}
	if err := h.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	g.emit(connectivity.Event{Kind: connectivity.EventStatusChanged, Status: "offline"})
	slog.Info("backend: session stopped")
	if firstErr != nil {
		return fmt.Errorf("stop session: %w", firstErr)
	}
	return nil
}

// bootstrap dials the configured bootstrap nodes and kicks the DHT routing
// table. Failures are logged, not fatal: the session is usable without
// bootstrap, just lonely.
func (g *Gateway) bootstrap(ctx context.Context, h host.Host, kdht *dht.IpfsDHT) {
	infos, err := parseAddrInfos(g.cfg.BootstrapNodes)
	if err != nil {
		slog.Warn("backend: bad bootstrap addresses", "error", err)
	}
	for _, info := range infos {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		err := h.Connect(dialCtx, info)
		cancel()
		if err != nil {
			slog.Debug("backend: bootstrap dial failed", "peer", info.ID, "error", err)
		}
	}
	if err := kdht.Bootstrap(ctx); err != nil {
		slog.Debug("backend: dht bootstrap failed", "error", err)
	}
}

// ListPeers reports every peer the host knows to be connected, plus
// LAN-discovered peers that have not connected yet.
func (g *Gateway) ListPeers(ctx context.Context) ([]connectivity.PeerRecord, error) {
	g.mu.Lock()
	h, mdns := g.host, g.mdns
	g.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("session not running")
	}

	connected := h.Network().Peers()
	records := make([]connectivity.PeerRecord, 0, len(connected))
	seen := make(map[peer.ID]struct{}, len(connected))
	for _, pid := range connected {
		seen[pid] = struct{}{}
		records = append(records, connectivity.PeerRecord{
			PeerID:       pid.String(),
			Addresses:    addrStrings(h.Peerstore().Addrs(pid)),
			Connected:    true,
			DiscoveredAt: g.discoveredAt(pid),
		})
	}
	if mdns != nil {
		for _, pid := range mdns.KnownPeers() {
			if _, dup := seen[pid]; dup {
				continue
			}
			records = append(records, connectivity.PeerRecord{
				PeerID:       pid.String(),
				Addresses:    addrStrings(h.Peerstore().Addrs(pid)),
				Connected:    false,
				DiscoveredAt: g.discoveredAt(pid),
			})
		}
	}
	return records, nil
}

// Stats reports session counters from the bandwidth reporter and swarm.
func (g *Gateway) Stats(ctx context.Context) (connectivity.Stats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.host == nil {
		return connectivity.Stats{}, fmt.Errorf("session not running")
	}
	totals := g.bandwidth.GetBandwidthTotals()
	return connectivity.Stats{
		ConnectedPeerCount: len(g.host.Network().Peers()),
		UptimeSeconds:      int64(time.Since(g.started).Seconds()),
		BytesIn:            totals.TotalIn,
		BytesOut:           totals.TotalOut,
		NATStatus:          g.natStatus,
	}, nil
}

// ListeningAddresses returns the host's local listen addresses.
func (g *Gateway) ListeningAddresses(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.host == nil {
		return nil, fmt.Errorf("session not running")
	}
	return addrStrings(g.host.Addrs()), nil
}

// ShareableAddresses returns addresses a remote peer anywhere could use:
// the host's advertised addresses plus circuit addresses through confirmed
// relay reservations.
func (g *Gateway) ShareableAddresses(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.host == nil {
		return nil, fmt.Errorf("session not running")
	}
	addrs := addrStrings(g.host.Addrs())
	addrs = append(addrs, g.circuits...)
	return addrs, nil
}

// ConnectToAddress dials a full peer multiaddr in the background.
func (g *Gateway) ConnectToAddress(ctx context.Context, addr string) error {
	g.mu.Lock()
	h := g.host
	sessCtx := g.sessCtx
	g.mu.Unlock()
	if h == nil {
		return fmt.Errorf("session not running")
	}
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return fmt.Errorf("parse address %s: %w", addr, err)
	}

	g.sessWG.Add(1)
	go func() {
		defer g.sessWG.Done()
		dialCtx, cancel := context.WithTimeout(sessCtx, dialTimeout)
		defer cancel()
		if err := h.Connect(dialCtx, *info); err != nil {
			slog.Debug("backend: dial failed", "peer", info.ID, "error", err)
		}
	}()
	return nil
}

// ConnectToRelay dials the relay and requests a circuit reservation. The
// call returns once the request is accepted for processing; the
// relay_connected event reports completion.
func (g *Gateway) ConnectToRelay(ctx context.Context, addr string) error {
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return fmt.Errorf("parse relay address %s: %w", addr, err)
	}
	return g.reserveRelay(*info, addr)
}

// ConnectToPublicRelays requests reservations with every configured
// default relay.
func (g *Gateway) ConnectToPublicRelays(ctx context.Context) error {
	if len(g.cfg.RelayAddresses) == 0 {
		return fmt.Errorf("no default relays configured")
	}
	infos, err := parseAddrInfos(g.cfg.RelayAddresses)
	if err != nil {
		return fmt.Errorf("parse default relays: %w", err)
	}
	var firstErr error
	for i, info := range infos {
		if err := g.reserveRelay(info, g.cfg.RelayAddresses[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// reserveRelay connects and reserves in the background, emitting
// relay_connected on success.
func (g *Gateway) reserveRelay(info peer.AddrInfo, addr string) error {
	g.mu.Lock()
	h := g.host
	sessCtx := g.sessCtx
	g.mu.Unlock()
	if h == nil {
		return fmt.Errorf("session not running")
	}

	g.sessWG.Add(1)
	go func() {
		defer g.sessWG.Done()

		dialCtx, cancel := context.WithTimeout(sessCtx, dialTimeout)
		defer cancel()

		if err := h.Connect(dialCtx, info); err != nil {
			slog.Warn("backend: relay dial failed", "relay", info.ID, "error", err)
			return
		}
		if _, err := circuitclient.Reserve(dialCtx, h, info); err != nil {
			slog.Warn("backend: relay reservation failed", "relay", info.ID, "error", err)
			return
		}

		circuit := addr + "/p2p-circuit/p2p/" + h.ID().String()
		g.mu.Lock()
		if g.host == h && !contains(g.circuits, circuit) {
			g.circuits = append(g.circuits, circuit)
		}
		g.mu.Unlock()

		g.emit(connectivity.Event{Kind: connectivity.EventRelayConnected, Address: addr})
	}()
	return nil
}

// AddBootstrapNode registers an extra bootstrap address with the running
// session and dials it.
func (g *Gateway) AddBootstrapNode(ctx context.Context, addr string) error {
	g.mu.Lock()
	h := g.host
	g.mu.Unlock()
	if h == nil {
		return fmt.Errorf("session not running")
	}
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return fmt.Errorf("parse bootstrap address %s: %w", addr, err)
	}
	h.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.PermanentAddrTTL)
	return g.ConnectToAddress(ctx, addr)
}

// discoveredAt returns (and memoizes) when a peer was first seen.
func (g *Gateway) discoveredAt(pid peer.ID) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.firstSeen[pid]; ok {
		return t
	}
	now := time.Now()
	g.firstSeen[pid] = now
	return now
}

// emit delivers an event without ever blocking the host's event bus. A full
// channel means the consumer died or stalled badly; dropping is the lesser
// evil.
func (g *Gateway) emit(evt connectivity.Event) {
	select {
	case g.events <- evt:
	default:
		slog.Warn("backend: event dropped, consumer stalled", "kind", evt.Kind)
	}
}

// holePunchTracer forwards DCUtR successes to the event stream.
type holePunchTracer struct {
	gw *Gateway
}

func (t *holePunchTracer) Trace(evt *holepunch.Event) {
	e, ok := evt.Evt.(*holepunch.EndHolePunchEvt)
	if !ok || !e.Success {
		return
	}
	t.gw.emit(connectivity.Event{
		Kind:   connectivity.EventHolePunchSucceeded,
		PeerID: evt.Remote.String(),
	})
}

// parseAddrInfos parses multiaddrs into AddrInfos, merging duplicates of
// the same peer.
func parseAddrInfos(addrs []string) ([]peer.AddrInfo, error) {
	var infos []peer.AddrInfo
	index := make(map[peer.ID]int)
	for _, s := range addrs {
		info, err := peer.AddrInfoFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address %s: %w", s, err)
		}
		if i, ok := index[info.ID]; ok {
			infos[i].Addrs = append(infos[i].Addrs, info.Addrs...)
			continue
		}
		index[info.ID] = len(infos)
		infos = append(infos, *info)
	}
	return infos, nil
}

func addrStrings(addrs []ma.Multiaddr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// reachabilityString maps libp2p reachability onto gateway NAT statuses.
func reachabilityString(r network.Reachability) string {
	switch r {
	case network.ReachabilityPublic:
		return string(connectivity.NATPublic)
	case network.ReachabilityPrivate:
		return string(connectivity.NATPrivate)
	default:
		return string(connectivity.NATUnknown)
	}
}
