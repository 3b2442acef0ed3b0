package probe

import "errors"

var (
	// ErrPeerDisconnected marks a mid-session send or receive failure on a
	// TCP connection. It ends the current session only; controllers recover
	// and keep serving.
	ErrPeerDisconnected = errors.New("peer disconnected")

	// ErrNoTrafficDetected is returned when no payload arrived within the
	// first-packet timeout. The session ends without statistics.
	ErrNoTrafficDetected = errors.New("no traffic detected")
)
