package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

// busLoop subscribes to the host's event bus and translates bus events into
// gateway events. It runs for the lifetime of one session.
func (g *Gateway) busLoop(ctx context.Context, h host.Host) {
	defer g.sessWG.Done()

	sub, err := h.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerConnectednessChanged),
		new(event.EvtLocalReachabilityChanged),
		new(event.EvtLocalAddressesUpdated),
	})
	if err != nil {
		slog.Error("backend: event bus subscribe failed", "error", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Out():
			if !ok {
				return
			}
			switch e := evt.(type) {
			case event.EvtPeerConnectednessChanged:
				g.onConnectedness(e)
			case event.EvtLocalReachabilityChanged:
				g.onReachability(e)
			case event.EvtLocalAddressesUpdated:
				g.onAddressesUpdated(e)
			}
		}
	}
}

func (g *Gateway) onConnectedness(e event.EvtPeerConnectednessChanged) {
	g.mu.Lock()
	if _, ok := g.firstSeen[e.Peer]; !ok {
		g.firstSeen[e.Peer] = time.Now()
	}
	g.mu.Unlock()

	switch e.Connectedness {
	case network.Connected:
		g.emit(connectivity.Event{
			Kind:   connectivity.EventPeerConnected,
			PeerID: e.Peer.String(),
		})
	case network.NotConnected:
		g.emit(connectivity.Event{
			Kind:   connectivity.EventPeerDisconnected,
			PeerID: e.Peer.String(),
		})
	}
}

// onReachability reports AutoNAT's verdict. Unknown is not forwarded; the
// store treats NAT classification as monotonic per session and times out on
// its own.
func (g *Gateway) onReachability(e event.EvtLocalReachabilityChanged) {
	status := reachabilityString(e.Reachability)
	if status == string(connectivity.NATUnknown) {
		return
	}
	g.mu.Lock()
	g.natStatus = status
	g.mu.Unlock()

	g.emit(connectivity.Event{
		Kind:   connectivity.EventNATStatusChanged,
		Status: status,
	})
}

// onAddressesUpdated forwards the current advertised address set. Public
// addresses (typically learned through identify or AutoNAT) surface as
// external_address_discovered; the rest as listening_on.
func (g *Gateway) onAddressesUpdated(e event.EvtLocalAddressesUpdated) {
	for _, ua := range e.Current {
		kind := connectivity.EventListeningOn
		if manet.IsPublicAddr(ua.Address) {
			kind = connectivity.EventExternalAddress
		}
		g.emit(connectivity.Event{
			Kind:    kind,
			Address: ua.Address.String(),
		})
	}
}
