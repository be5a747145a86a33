package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	ma "github.com/multiformats/go-multiaddr"
	mh "github.com/multiformats/go-multihash"

	"github.com/meshwire/meshwire/internal/validate"
	"github.com/meshwire/meshwire/pkg/connectivity"
)

// contactPayload is the decoded body of a contact link. Peer is the CIDv1
// (libp2p-key) form of the peer ID; Addrs are the addresses a stranger can
// reach the peer at, normally circuit addresses through a relay.
type contactPayload struct {
	Peer  string   `json:"peer"`
	Addrs []string `json:"addrs"`
}

// ShareableContactString builds this node's contact link. It needs at least
// one confirmed relay circuit address — a link that only names LAN
// addresses is useless to a stranger — so before that it returns
// connectivity.ErrNotReady.
func (g *Gateway) ShareableContactString(ctx context.Context) (string, error) {
	g.mu.Lock()
	h := g.host
	circuits := append([]string(nil), g.circuits...)
	g.mu.Unlock()

	if h == nil {
		return "", fmt.Errorf("session not running")
	}
	if len(circuits) == 0 {
		return "", fmt.Errorf("%w: no relay circuit addresses yet", connectivity.ErrNotReady)
	}

	payload := contactPayload{
		Peer:  peer.ToCid(h.ID()).String(),
		Addrs: circuits,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode contact payload: %w", err)
	}
	return validate.ContactLinkScheme + base64.RawURLEncoding.EncodeToString(data), nil
}

// ResolveContactLink decodes a contact link and records the contained peer
// in the peerstore. No connect step follows; the peer becomes dialable and
// is announced as discovered.
func (g *Gateway) ResolveContactLink(ctx context.Context, link string) error {
	g.mu.Lock()
	h := g.host
	g.mu.Unlock()
	if h == nil {
		return fmt.Errorf("session not running")
	}

	raw, err := validate.ContactLinkPayload(link)
	if err != nil {
		return err
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("%w: payload is not base64: %v", validate.ErrInvalidContactLink, err)
	}
	var payload contactPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: payload is not valid JSON: %v", validate.ErrInvalidContactLink, err)
	}

	pid, err := peerIDFromCid(payload.Peer)
	if err != nil {
		return fmt.Errorf("%w: %v", validate.ErrInvalidContactLink, err)
	}
	if pid == h.ID() {
		return fmt.Errorf("%w: contact link names ourselves", validate.ErrInvalidContactLink)
	}

	var addrs []ma.Multiaddr
	for _, s := range payload.Addrs {
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			return fmt.Errorf("%w: bad address %q: %v", validate.ErrInvalidContactLink, s, err)
		}
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: no addresses in payload", validate.ErrInvalidContactLink)
	}

	h.Peerstore().AddAddrs(pid, addrs, peerstore.PermanentAddrTTL)
	g.emit(connectivity.Event{
		Kind:   connectivity.EventPeerDiscovered,
		PeerID: pid.String(),
	})
	return nil
}

// peerIDFromCid parses a CIDv1 string back into a peer ID, checking the
// multihash is one of the digests libp2p mints peer IDs from.
func peerIDFromCid(s string) (peer.ID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("decode peer cid: %w", err)
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return "", fmt.Errorf("decode peer multihash: %w", err)
	}
	if decoded.Code != mh.IDENTITY && decoded.Code != mh.SHA2_256 {
		return "", fmt.Errorf("unexpected peer multihash code %d", decoded.Code)
	}
	return peer.FromCid(c)
}
