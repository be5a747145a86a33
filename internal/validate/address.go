// Package validate checks user-supplied addresses and contact links before
// they reach the networking backend. Validation here is purely local: a
// rejected input never triggers a backend call.
package validate

import (
	"fmt"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

// ContactLinkScheme is the distinguishing prefix of a shareable contact
// link. The payload after the scheme is opaque at this layer; the backend
// decodes it.
const ContactLinkScheme = "meshwire:"

// PeerAddress checks that s is a well-formed multiaddr carrying a
// /p2p/<peer-id> component. Dialing an address without a peer identifier
// would skip identity verification, so those are rejected outright.
func PeerAddress(s string) error {
	if s == "" {
		return fmt.Errorf("%w: address is empty", ErrInvalidAddress)
	}
	if !strings.HasPrefix(s, "/") {
		return fmt.Errorf("%w: %q does not start with /", ErrInvalidAddress, s)
	}
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !hasPeerComponent(addr) {
		return fmt.Errorf("%w: %q has no /p2p/<peer-id> component", ErrInvalidAddress, s)
	}
	return nil
}

// RelayAddress checks a relay server multiaddr. Relays are dialed by
// identity like any other peer, so the same rules apply.
func RelayAddress(s string) error {
	return PeerAddress(s)
}

// BootstrapAddress checks an address destined for the persisted bootstrap
// list.
func BootstrapAddress(s string) error {
	return PeerAddress(s)
}

// IsContactLink reports whether s carries the contact-link scheme. It does
// not inspect the payload; a recognized scheme with a bad payload fails
// later, in the backend's decoder.
func IsContactLink(s string) bool {
	return strings.HasPrefix(s, ContactLinkScheme)
}

// ContactLinkPayload strips the scheme and returns the opaque payload.
func ContactLinkPayload(s string) (string, error) {
	if !IsContactLink(s) {
		return "", fmt.Errorf("%w: missing %q scheme", ErrInvalidContactLink, ContactLinkScheme)
	}
	payload := strings.TrimPrefix(s, ContactLinkScheme)
	if payload == "" {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidContactLink)
	}
	return payload, nil
}

// hasPeerComponent reports whether addr contains a /p2p/ component.
func hasPeerComponent(addr ma.Multiaddr) bool {
	found := false
	ma.ForEach(addr, func(c ma.Component) bool {
		if c.Protocol().Code == ma.P_P2P {
			found = true
			return false
		}
		return true
	})
	return found
}
