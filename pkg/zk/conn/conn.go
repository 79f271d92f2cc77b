package conn

import "context"

// ClientConnection is the contract spec.md section 1 calls "IClientConnection":
// everything the facade needs from the session and connection subsystem,
// independent of paths, chroot, or ACLs. *Engine implements it; tests can
// substitute a fake.
type ClientConnection interface {
	// Start begins the reconnect loop in the background.
	Start()
	// Submit sends an opaque request body of the given type and blocks
	// for the matching reply, a terminal error, or ctx cancellation.
	Submit(ctx context.Context, reqType int32, body []byte, watch *WatchSpec) (Result, error)
	// State reports the engine's current position in the state machine.
	State() State
	// SessionID and SessionPassword expose the negotiated session for
	// resumption by a future client (spec.md section 3 "Session").
	SessionID() int64
	SessionPassword() []byte
	// LastZxidSeen is the highest zxid observed so far this session.
	LastZxidSeen() int64
	// Watches exposes the registry the facade installs/consults watches in.
	Watches() *WatchRegistry
	// Close idempotently tears the session down.
	Close() error
}

var _ ClientConnection = (*Engine)(nil)
