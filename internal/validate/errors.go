package validate

import "errors"

var (
	// ErrInvalidAddress is returned when an address string is empty, not a
	// well-formed multiaddr, or lacks a /p2p/<peer-id> component.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidContactLink is returned when a contact link has the right
	// scheme but an empty or malformed payload.
	ErrInvalidContactLink = errors.New("invalid contact link")
)
