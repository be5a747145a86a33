package connectivity

import "errors"

var (
	// ErrBackendUnavailable is returned when the networking backend cannot
	// start or stop a session. Non-fatal: the session reverts to (or stays)
	// offline and the action may be retried.
	ErrBackendUnavailable = errors.New("network backend unavailable")

	// ErrInvalidAddressFormat is returned when a user-supplied address or
	// contact string fails local validation. No backend call is made and no
	// state changes.
	ErrInvalidAddressFormat = errors.New("invalid address format")

	// ErrRelayTimeout is returned when no relay_connected event arrives
	// within the relay deadline of a connect request. The relay state is
	// forced back to Disconnected; the connect may be retried.
	ErrRelayTimeout = errors.New("relay connection timed out")

	// ErrRequestFailed is returned when a backend command rejects. Any
	// pending transition reverts to its pre-call value.
	ErrRequestFailed = errors.New("backend request failed")

	// ErrNotReady is returned when a derived value (such as the shareable
	// contact string) is requested before the state it depends on exists.
	ErrNotReady = errors.New("not ready")

	// ErrSessionNotOffline is returned by StartNetwork when the session is
	// already connecting or online.
	ErrSessionNotOffline = errors.New("session already started")
)
