package chat

// Conn is the transport-layer connection handle borrowed by the router while
// the associated user is online. The transport layer owns the connection; the
// router only writes to it, reads its peer address, and closes it on explicit
// logout or disconnect handling.
//
// Implementations must be comparable so the session directory can index by
// connection identity.
type Conn interface {
	// Send queues payload for delivery to the peer. It must not block
	// indefinitely; implementations are expected to fail fast when the
	// peer cannot keep up.
	Send(payload []byte) error

	// Close tears down the underlying connection. Closing an already
	// closed connection is safe.
	Close() error

	// PeerAddr returns the remote address for diagnostics.
	PeerAddr() string
}
