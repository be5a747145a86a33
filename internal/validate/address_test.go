package validate

import (
	"errors"
	"testing"
)

const validPeerAddr = "/ip4/203.0.113.7/tcp/4001/p2p/QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC"

func TestPeerAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid tcp", validPeerAddr, false},
		{"valid quic", "/ip4/203.0.113.7/udp/4001/quic-v1/p2p/QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC", false},
		{"valid circuit", validPeerAddr + "/p2p-circuit/p2p/QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC", false},
		{"empty", "", true},
		{"no leading slash", "ip4/1.2.3.4/tcp/1", true},
		{"not a multiaddr", "/banana/split", true},
		{"missing peer component", "/ip4/1.2.3.4/tcp/4001", true},
		{"bad peer id", "/ip4/1.2.3.4/tcp/4001/p2p/notapeerid!!!", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PeerAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("PeerAddress(%q) = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("error %v does not wrap ErrInvalidAddress", err)
			}
		})
	}
}

func TestRelayAndBootstrapShareRules(t *testing.T) {
	// Relays and bootstrap nodes are dialed by identity like any peer.
	if err := RelayAddress(validPeerAddr); err != nil {
		t.Errorf("RelayAddress(valid) = %v", err)
	}
	if err := RelayAddress("/ip4/1.2.3.4/tcp/4001"); err == nil {
		t.Error("RelayAddress accepted an address without a peer component")
	}
	if err := BootstrapAddress(validPeerAddr); err != nil {
		t.Errorf("BootstrapAddress(valid) = %v", err)
	}
}

func TestContactLink(t *testing.T) {
	if !IsContactLink("meshwire:abc123") {
		t.Error("IsContactLink rejected a contact link")
	}
	if IsContactLink("https://example.com") || IsContactLink("") {
		t.Error("IsContactLink accepted a non-link")
	}

	payload, err := ContactLinkPayload("meshwire:abc123")
	if err != nil {
		t.Fatalf("ContactLinkPayload: %v", err)
	}
	if payload != "abc123" {
		t.Errorf("payload = %q, want abc123", payload)
	}

	if _, err := ContactLinkPayload("meshwire:"); !errors.Is(err, ErrInvalidContactLink) {
		t.Errorf("empty payload error = %v, want ErrInvalidContactLink", err)
	}
	if _, err := ContactLinkPayload("abc123"); !errors.Is(err, ErrInvalidContactLink) {
		t.Errorf("missing scheme error = %v, want ErrInvalidContactLink", err)
	}
}
