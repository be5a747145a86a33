package backend

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/zeroconf/v2"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

// mdnsServiceName is the DNS-SD service type used for LAN discovery.
const mdnsServiceName = "_meshwire._udp"

const (
	// mdnsBrowseInterval controls how often the network is re-queried.
	// Each round uses a fresh multicast socket; long-lived Browse calls
	// stall silently on some platforms (mDNSResponder, avahi conflicts).
	mdnsBrowseInterval = 30 * time.Second

	// mdnsBrowseTimeout bounds a single browse round.
	mdnsBrowseTimeout = 10 * time.Second

	// mdnsExpiry is how long a LAN peer stays known without being seen in
	// a browse round before a peer_expired event fires. Three browse
	// intervals tolerates a couple of missed rounds.
	mdnsExpiry = 3 * mdnsBrowseInterval

	// dnsaddrPrefix matches libp2p's TXT record format for multiaddrs.
	dnsaddrPrefix = "dnsaddr="
)

// mdnsDiscovery advertises this node on the LAN and browses for other
// meshwire nodes, emitting peer_discovered / peer_expired gateway events.
type mdnsDiscovery struct {
	gw     *Gateway
	host   host.Host
	server *zeroconf.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastSeen map[peer.ID]time.Time
}

func newMDNSDiscovery(gw *Gateway, h host.Host) *mdnsDiscovery {
	return &mdnsDiscovery{
		gw:       gw,
		host:     h,
		lastSeen: make(map[peer.ID]time.Time),
	}
}

// Start registers the DNS-SD service and launches the browse loop. A
// registration failure only logs; LAN discovery is best-effort.
func (md *mdnsDiscovery) Start(ctx context.Context) {
	md.ctx, md.cancel = context.WithCancel(ctx)

	if err := md.register(); err != nil {
		slog.Warn("mdns: advertising disabled", "error", err)
	}

	md.wg.Add(1)
	go md.browseLoop()
}

// Stop shuts down advertising and waits for the browse loop to exit.
func (md *mdnsDiscovery) Stop() {
	md.cancel()
	if md.server != nil {
		md.server.Shutdown()
	}
	md.wg.Wait()
}

// KnownPeers returns the LAN peers seen within the expiry window.
func (md *mdnsDiscovery) KnownPeers() []peer.ID {
	md.mu.Lock()
	defer md.mu.Unlock()
	out := make([]peer.ID, 0, len(md.lastSeen))
	for pid := range md.lastSeen {
		out = append(out, pid)
	}
	return out
}

// register advertises this host's listen addresses as dnsaddr= TXT records,
// following libp2p's mDNS format so any libp2p-style browser can parse
// them.
func (md *mdnsDiscovery) register() error {
	interfaceAddrs, err := md.host.Network().InterfaceListenAddresses()
	if err != nil {
		return err
	}
	p2pAddrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{
		ID:    md.host.ID(),
		Addrs: interfaceAddrs,
	})
	if err != nil {
		return err
	}

	var txts []string
	for _, addr := range p2pAddrs {
		txts = append(txts, dnsaddrPrefix+addr.String())
	}

	instance := randomInstanceName()
	server, err := zeroconf.RegisterProxy(
		instance,
		mdnsServiceName,
		"local",
		4001, // port required by DNS-SD; addresses travel in TXT records
		instance,
		nil,
		txts,
		nil,
	)
	if err != nil {
		return err
	}
	md.server = server
	return nil
}

func (md *mdnsDiscovery) browseLoop() {
	defer md.wg.Done()

	// Let the host finish binding interfaces before the first round.
	select {
	case <-time.After(2 * time.Second):
	case <-md.ctx.Done():
		return
	}
	md.browseOnce()

	ticker := time.NewTicker(mdnsBrowseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-md.ctx.Done():
			return
		case <-ticker.C:
			md.browseOnce()
			md.expireStale()
		}
	}
}

// browseOnce runs a single bounded browse round.
func (md *mdnsDiscovery) browseOnce() {
	browseCtx, cancel := context.WithTimeout(md.ctx, mdnsBrowseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)

	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		for entry := range entries {
			md.handleEntry(entry.Text)
		}
	}()

	if err := zeroconf.Browse(browseCtx, mdnsServiceName, "local.", entries); err != nil {
		if md.ctx.Err() == nil {
			slog.Debug("mdns: browse round error", "error", err)
		}
	}
	consumerWG.Wait()
}

// handleEntry parses one service entry's TXT records into peer addresses.
func (md *mdnsDiscovery) handleEntry(txts []string) {
	addrs := make([]ma.Multiaddr, 0, len(txts))
	for _, txt := range txts {
		if !strings.HasPrefix(txt, dnsaddrPrefix) {
			continue
		}
		addr, err := ma.NewMultiaddr(txt[len(dnsaddrPrefix):])
		if err != nil {
			slog.Debug("mdns: bad multiaddr in TXT", "error", err)
			continue
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return
	}

	infos, err := peer.AddrInfosFromP2pAddrs(addrs...)
	if err != nil {
		slog.Debug("mdns: failed to parse peer addrs", "error", err)
		return
	}
	for _, info := range infos {
		if info.ID == md.host.ID() {
			continue
		}
		md.peerFound(info)
	}
}

// peerFound records the peer, refreshes its addresses in the peerstore and
// announces first sightings.
func (md *mdnsDiscovery) peerFound(info peer.AddrInfo) {
	md.host.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.AddressTTL)

	md.mu.Lock()
	_, known := md.lastSeen[info.ID]
	md.lastSeen[info.ID] = time.Now()
	md.mu.Unlock()

	if known {
		return
	}
	slog.Info("mdns: peer discovered on LAN", "peer", info.ID)
	md.gw.emit(connectivity.Event{
		Kind:   connectivity.EventPeerDiscovered,
		PeerID: info.ID.String(),
	})
}

// expireStale drops peers not seen within the expiry window.
func (md *mdnsDiscovery) expireStale() {
	cutoff := time.Now().Add(-mdnsExpiry)

	md.mu.Lock()
	var expired []peer.ID
	for pid, seen := range md.lastSeen {
		if seen.Before(cutoff) {
			delete(md.lastSeen, pid)
			expired = append(expired, pid)
		}
	}
	md.mu.Unlock()

	for _, pid := range expired {
		slog.Debug("mdns: peer expired", "peer", pid)
		md.gw.emit(connectivity.Event{
			Kind:   connectivity.EventPeerExpired,
			PeerID: pid.String(),
		})
	}
}

const instanceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomInstanceName generates a random DNS-SD instance name. Random names
// avoid leaking a stable identifier onto every LAN the node visits.
func randomInstanceName() string {
	b := make([]byte, 32+rand.Intn(16))
	for i := range b {
		b[i] = instanceAlphabet[rand.Intn(len(instanceAlphabet))]
	}
	return string(b)
}
