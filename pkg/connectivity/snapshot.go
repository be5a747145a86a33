package connectivity

// SessionStatus is the lifecycle state of the local node's participation in
// the peer network.
type SessionStatus string

const (
	SessionOffline    SessionStatus = "offline"
	SessionConnecting SessionStatus = "connecting"
	SessionOnline     SessionStatus = "online"
)

// RelayStatus is the lifecycle state of the optional relay connection.
// Legal transitions: Disconnected -> Connecting -> Connected or back to
// Disconnected. A direct Disconnected -> Connected never happens.
type RelayStatus string

const (
	RelayDisconnected RelayStatus = "disconnected"
	RelayConnecting   RelayStatus = "connecting"
	RelayConnected    RelayStatus = "connected"
)

// NATStatus classifies the local node's reachability. Within a session it
// moves from Unknown to Public or Private exactly once and never back.
type NATStatus string

const (
	NATUnknown NATStatus = "unknown"
	NATPublic  NATStatus = "public"
	NATPrivate NATStatus = "private"
)

// NetworkSession is the on/off state of the local node.
type NetworkSession struct {
	Running bool          `json:"running"`
	Status  SessionStatus `json:"status"`
}

// RelayConnection is the relay sub-state, owned exclusively by the store.
type RelayConnection struct {
	Status    RelayStatus `json:"status"`
	Addresses []string    `json:"addresses,omitempty"`
}

// ConnectivityStats are the session counters shown to the user.
type ConnectivityStats struct {
	ConnectedPeerCount int       `json:"connected_peer_count"`
	UptimeSeconds      int64     `json:"uptime_seconds"`
	BytesIn            int64     `json:"bytes_in"`
	BytesOut           int64     `json:"bytes_out"`
	NATStatus          NATStatus `json:"nat_status"`
}

// PeerSnapshot is a peer record plus its derived display identity.
type PeerSnapshot struct {
	PeerRecord
	Friendly FriendlyIdentity `json:"friendly"`
}

// Snapshot is a read-only copy of the store's state. Consumers never see
// live internals; every slice is freshly allocated.
type Snapshot struct {
	Session              NetworkSession    `json:"session"`
	Relay                RelayConnection   `json:"relay"`
	Stats                ConnectivityStats `json:"stats"`
	NATDetectionTimedOut bool              `json:"nat_detection_timed_out"`
	Peers                []PeerSnapshot    `json:"peers"`
	ListeningAddresses   []string          `json:"listening_addresses,omitempty"`
	ShareableAddresses   []string          `json:"shareable_addresses,omitempty"`
	BootstrapNodes       []string          `json:"bootstrap_nodes,omitempty"`
	BackendStatus        string            `json:"backend_status,omitempty"`
	LastError            string            `json:"last_error,omitempty"`
}
