// Package conn is the session and connection subsystem: host list manager
// (hosts.go), frame codec (codec.go), pending-request registry
// (pending.go), the session engine state machine (engine.go), and the
// event dispatcher (dispatcher.go). pkg/zk is the only intended caller.
package conn
