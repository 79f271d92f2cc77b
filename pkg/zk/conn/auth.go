package conn

import "context"

// Authenticator is the injected SASL capability spec.md section 1 and
// section 4.D describe: "Optional SASL authentication handshake (an
// injected capability; the core must invoke it at defined points but does
// not implement it)". The engine calls Authenticate once per successful
// connect, after CONNECTED but before flushing the auth-info backlog; a
// nil Authenticator (the default) skips the step entirely.
type Authenticator interface {
	// Authenticate runs the handshake over the already-established
	// session. Scheme/Auth are opaque bytes the caller configured; the
	// engine neither inspects nor generates them. A non-nil error
	// transitions the engine to AuthFailed per spec.md section 4.D.
	Authenticate(ctx context.Context, send func(scheme string, auth []byte) error) error
}

// AuthInfo is one (scheme, auth-bytes) pair queued before the session was
// established; spec.md section 4.D: "flush auth_info backlog as priority
// requests" once CONNECTED.
type AuthInfo struct {
	Scheme string
	Auth   []byte
}
