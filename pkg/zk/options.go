package zk

import (
	"io"
	"log"
	"time"
)

// options collects everything New can be configured with. There is no
// config-file layer here (DESIGN NOTES "global state": each client instance
// is self-contained), just functional options over constructor arguments,
// following the teacher's pattern of plain constructor args rather than a
// parsed config struct.
type options struct {
	sessionTimeout time.Duration
	dialTimeout    time.Duration
	logger         *log.Logger
	defaultWatcher Watcher
	sessionID      int64
	sessionPasswd  []byte
	maxFrameSize   int32
}

func defaultOptions() options {
	return options{
		sessionTimeout: 6 * time.Second,
		dialTimeout:    2 * time.Second,
		logger:         log.Default(),
		defaultWatcher: func(Event) {},
		maxFrameSize:   1 << 20,
	}
}

// Option configures a Client constructed by New.
type Option func(*options)

// WithSessionTimeout sets the timeout negotiated with the server on
// connect (spec.md section 3 "Session"). The server may lower it.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *options) { o.sessionTimeout = d }
}

// WithDialTimeout bounds how long a single TCP connect attempt to one
// server in the host list may take before the host list manager moves on.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithLogger injects the logger used for session lifecycle messages. Nil
// disables logging. Logging is the only ambient collaborator (DESIGN NOTES);
// it is always passed in, never read from a package-level variable.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = log.New(io.Discard, "", 0)
		}
		o.logger = l
	}
}

// WithDefaultWatcher registers the handler that receives every state event
// and any node event with no path-specific watcher (spec.md section 4.E).
func WithDefaultWatcher(w Watcher) Option {
	return func(o *options) {
		if w != nil {
			o.defaultWatcher = w
		}
	}
}

// WithSessionResumption supplies a previously negotiated (session id,
// password) pair so New attempts to resume that session instead of
// starting a fresh one (spec.md section 3 "Session" invariant).
func WithSessionResumption(sessionID int64, passwd []byte) Option {
	return func(o *options) {
		o.sessionID = sessionID
		o.sessionPasswd = passwd
	}
}

// WithMaxFrameSize bounds the largest frame the codec will accept; a larger
// frame fails the read with conn.ErrProtocolError, which drops the
// connection (spec.md section 4.B).
func WithMaxFrameSize(n int32) Option {
	return func(o *options) { o.maxFrameSize = n }
}
