package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/meshwire/meshwire/internal/validate"
	"github.com/meshwire/meshwire/pkg/connectivity"
)

// injectCircuit fakes a confirmed relay reservation.
func injectCircuit(g *Gateway, addr string) {
	g.mu.Lock()
	g.circuits = append(g.circuits, addr)
	g.mu.Unlock()
}

func TestShareableContactStringRequiresCircuit(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.ShareableContactString(context.Background())
	if !errors.Is(err, connectivity.ErrNotReady) {
		t.Fatalf("error = %v, want ErrNotReady before any reservation", err)
	}
}

func TestContactLinkRoundTrip(t *testing.T) {
	g1 := newTestGateway(t)
	g2 := newTestGateway(t)

	circuit := "/ip4/203.0.113.7/tcp/4001/p2p/QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC/p2p-circuit/p2p/" + g1.host.ID().String()
	injectCircuit(g1, circuit)

	link, err := g1.ShareableContactString(context.Background())
	if err != nil {
		t.Fatalf("ShareableContactString: %v", err)
	}
	if !strings.HasPrefix(link, validate.ContactLinkScheme) {
		t.Fatalf("link %q missing scheme", link)
	}

	if err := g2.ResolveContactLink(context.Background(), link); err != nil {
		t.Fatalf("ResolveContactLink: %v", err)
	}

	evt := awaitEvent(t, g2, connectivity.EventPeerDiscovered)
	if evt.PeerID != g1.host.ID().String() {
		t.Errorf("discovered peer = %s, want %s", evt.PeerID, g1.host.ID())
	}
	if addrs := g2.host.Peerstore().Addrs(g1.host.ID()); len(addrs) == 0 {
		t.Error("resolved peer has no addresses in the peerstore")
	}
}

func TestResolveContactLinkRejectsSelf(t *testing.T) {
	g := newTestGateway(t)
	injectCircuit(g, "/ip4/203.0.113.7/tcp/4001/p2p/QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC/p2p-circuit/p2p/"+g.host.ID().String())

	link, err := g.ShareableContactString(context.Background())
	if err != nil {
		t.Fatalf("ShareableContactString: %v", err)
	}
	if err := g.ResolveContactLink(context.Background(), link); err == nil {
		t.Error("resolved a link naming ourselves")
	}
}

func TestResolveContactLinkRejectsMalformedPayloads(t *testing.T) {
	g := newTestGateway(t)

	bad := []struct {
		name string
		link string
	}{
		{"missing scheme", "bm90LWEtbGluaw"},
		{"not base64", validate.ContactLinkScheme + "!!!not-base64!!!"},
		{"not json", validate.ContactLinkScheme + base64.RawURLEncoding.EncodeToString([]byte("{"))},
		{"no addresses", validate.ContactLinkScheme + base64.RawURLEncoding.EncodeToString(
			[]byte(`{"peer":"`+peer.ToCid(g.host.ID()).String()+`","addrs":[]}`))},
		{"junk peer", validate.ContactLinkScheme + base64.RawURLEncoding.EncodeToString(
			[]byte(`{"peer":"not-a-cid","addrs":["/ip4/1.2.3.4/tcp/1"]}`))},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ResolveContactLink(context.Background(), tt.link); err == nil {
				t.Errorf("accepted %s", tt.name)
			}
		})
	}
}

func TestPeerIDFromCidRoundTrip(t *testing.T) {
	pid, err := peer.Decode("QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC")
	if err != nil {
		t.Fatalf("decode peer id: %v", err)
	}

	got, err := peerIDFromCid(peer.ToCid(pid).String())
	if err != nil {
		t.Fatalf("peerIDFromCid: %v", err)
	}
	if got != pid {
		t.Errorf("round trip = %s, want %s", got, pid)
	}

	if _, err := peerIDFromCid("garbage"); err == nil {
		t.Error("peerIDFromCid accepted garbage")
	}
}
