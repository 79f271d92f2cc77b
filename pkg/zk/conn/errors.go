// Package conn implements the session and connection subsystem described in
// spec.md sections 2-5: the host list manager, frame codec, pending-request
// registry, session engine, and event dispatcher. It has no knowledge of
// paths, ACLs, or chroot; it moves opaque request/response bodies and
// delivers opaque watch notifications, exactly the "IClientConnection
// contract" spec.md section 1 says the facade depends on.
package conn

import "errors"

// Sentinel errors completions and Dial can return. These are the
// "Connection errors" and "Session errors" spec.md section 7 describes;
// server-reported per-operation errors are carried separately as raw
// (code, body) pairs so pkg/zk can attach path information the core
// doesn't have.
var (
	// ErrConnectionLoss is handed to every pending request in flight when
	// the socket dies mid-session. The caller decides whether to retry;
	// operations are not idempotent in general (spec.md section 7).
	ErrConnectionLoss = errors.New("conn: connection loss")
	// ErrSessionExpired means the server would not resume the session;
	// the client is now CLOSED and must be recreated.
	ErrSessionExpired = errors.New("conn: session expired")
	// ErrAuthFailed means the injected authenticator's handshake was
	// rejected; the client is now AUTH_FAILED, a terminal state.
	ErrAuthFailed = errors.New("conn: auth failed")
	// ErrProtocolError is raised by the frame codec or the pending
	// registry on a malformed frame or an xid that doesn't match the
	// front of the outbound queue; it always forces a reconnect.
	ErrProtocolError = errors.New("conn: protocol error")
	// ErrConfigError means the connect string was empty or malformed.
	ErrConfigError = errors.New("conn: config error")
	// ErrClosed is returned by Submit once the engine has reached CLOSED.
	ErrClosed = errors.New("conn: closed")
)
