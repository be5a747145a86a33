package connectivity

import (
	"context"
	"time"
)

// EventKind identifies an asynchronous lifecycle event from the backend.
type EventKind string

const (
	EventPeerConnected      EventKind = "peer_connected"
	EventPeerDisconnected   EventKind = "peer_disconnected"
	EventPeerDiscovered     EventKind = "peer_discovered"
	EventPeerExpired        EventKind = "peer_expired"
	EventRelayConnected     EventKind = "relay_connected"
	EventNATStatusChanged   EventKind = "nat_status_changed"
	EventListeningOn        EventKind = "listening_on"
	EventExternalAddress    EventKind = "external_address_discovered"
	EventStatusChanged      EventKind = "status_changed"
	EventHolePunchSucceeded EventKind = "hole_punch_succeeded"
)

// Event is a single backend lifecycle event. Which fields are set depends
// on Kind: peer events carry PeerID, address events carry Address, and
// nat_status_changed / status_changed carry Status.
type Event struct {
	Kind    EventKind
	PeerID  string
	Address string
	Status  string
}

// Stats is the backend's view of the running session.
type Stats struct {
	ConnectedPeerCount int    `json:"connected_peer_count"`
	UptimeSeconds      int64  `json:"uptime_seconds"`
	BytesIn            int64  `json:"bytes_in"`
	BytesOut           int64  `json:"bytes_out"`
	NATStatus          string `json:"nat_status"`
}

// PeerRecord describes one known peer as reported by the backend. The peer
// list is authoritative from the backend and replaced wholesale on each
// refresh (never merged incrementally).
type PeerRecord struct {
	PeerID       string    `json:"peer_id"`
	Addresses    []string  `json:"addresses"`
	Connected    bool      `json:"connected"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Gateway is the sole boundary to the external peer-networking backend.
// Every method is safe to call from any goroutine and returns promptly;
// long-running work happens behind the backend's own event loop and is
// reported through Events.
//
// Implementations: internal/backend (libp2p) for production, fakes in tests.
type Gateway interface {
	// StartSession brings the local node onto the peer network.
	StartSession(ctx context.Context) error
	// StopSession takes the local node off the peer network.
	StopSession(ctx context.Context) error

	// ListPeers returns the backend's full current peer list.
	ListPeers(ctx context.Context) ([]PeerRecord, error)
	// Stats returns session counters.
	Stats(ctx context.Context) (Stats, error)
	// ListeningAddresses returns the addresses the local node listens on.
	ListeningAddresses(ctx context.Context) ([]string, error)
	// ShareableAddresses returns externally reachable addresses, including
	// relay circuit addresses.
	ShareableAddresses(ctx context.Context) ([]string, error)

	// ConnectToAddress dials a peer at a full address (must contain a
	// peer-identifier component; validation happens in the store).
	ConnectToAddress(ctx context.Context, addr string) error
	// ConnectToRelay requests a reservation with the relay at addr.
	// Completion is reported via a relay_connected event.
	ConnectToRelay(ctx context.Context, addr string) error
	// ConnectToPublicRelays requests reservations with the well-known
	// default relay set.
	ConnectToPublicRelays(ctx context.Context) error
	// AddBootstrapNode registers an additional bootstrap address with the
	// backend for the current session.
	AddBootstrapNode(ctx context.Context, addr string) error
	// ResolveContactLink hands an opaque contact link to the backend, which
	// decodes it and records the contained peer.
	ResolveContactLink(ctx context.Context, link string) error
	// ShareableContactString derives the local node's contact link. Returns
	// ErrNotReady until relay circuit addresses exist.
	ShareableContactString(ctx context.Context) (string, error)

	// Events returns the backend's event stream. The channel is owned by
	// the gateway and closed when the session stops for good.
	Events() <-chan Event
}

// SettingsStore is the external settings collaborator. The store persists
// the bootstrap list through it but keeps its own in-memory working copy
// for validation and dedup.
type SettingsStore interface {
	BootstrapNodes() []string
	SaveBootstrapNodes(addrs []string) error
}
