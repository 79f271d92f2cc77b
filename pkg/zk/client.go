package zk

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikekulinski/zkconn/pkg/zk/conn"
	"github.com/mikekulinski/zkconn/pkg/zk/wire"
)

// CreateMode selects the persistence and sequencing of a newly created
// znode (spec.md section 6's Create operation).
type CreateMode int32

const (
	Persistent CreateMode = iota
	Ephemeral
	PersistentSequential
	EphemeralSequential
)

func (m CreateMode) isEphemeral() bool {
	return m == Ephemeral || m == EphemeralSequential
}

func (m CreateMode) isSequential() bool {
	return m == PersistentSequential || m == EphemeralSequential
}

// Client is the public facade spec.md section 6 describes: a chroot- and
// path-aware wrapper around the connection subsystem's opaque
// request/response bodies. Grounded on the teacher's pkg/client.Client,
// which played the same role over gRPC; this version drives
// pkg/zk/conn.ClientConnection instead, and pkg/zk/wire for body framing.
type Client struct {
	conn   conn.ClientConnection
	chroot string
	opts   options
}

// New parses connectString ("host1:port1,host2:port2[/chroot]"), builds
// the session engine, and starts it connecting in the background. It
// returns as soon as the engine exists; callers that need to block until
// CONNECTED should watch the default watcher for a Connected state event,
// the same asynchronous-by-default posture spec.md section 3 describes.
func New(connectString string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	hostPart, chroot, err := splitChroot(connectString)
	if err != nil {
		return nil, err
	}
	hosts, err := conn.ParseConnectString(hostPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigError, err)
	}

	c := &Client{chroot: chroot, opts: o}

	engine, err := conn.NewEngine(conn.Config{
		Hosts:          hosts,
		SessionTimeout: o.sessionTimeout,
		DialTimeout:    o.dialTimeout,
		MaxFrameSize:   o.maxFrameSize,
		SessionID:      o.sessionID,
		Password:       o.sessionPasswd,
		Logger:         o.logger,
		DefaultWatcher: c.translateEvent,
	})
	if err != nil {
		return nil, err
	}
	c.conn = engine
	engine.Start()
	return c, nil
}

// newWithConn lets tests substitute a fake ClientConnection in place of a
// real Engine.
func newWithConn(cc conn.ClientConnection, chroot string, o options) *Client {
	return &Client{conn: cc, chroot: chroot, opts: o}
}

// translateEvent adapts a conn.Event (server paths, core State/EventType)
// into the zk.Event callers see (chroot-stripped paths, facade State/
// EventType), and forwards it to the configured default watcher.
func (c *Client) translateEvent(e conn.Event) {
	out := Event{Err: e.Err}
	if e.Path != "" {
		out.Path = stripChroot(c.chroot, e.Path)
	}
	switch e.Type {
	case conn.EventStateChange:
		out.Type = EventNone
		if e.State == conn.Closed && errors.Is(e.Err, conn.ErrSessionExpired) {
			out.State = StateExpired
		} else {
			out.State = translateState(e.State)
		}
	case conn.EventNodeCreated:
		out.Type = EventNodeCreated
	case conn.EventNodeDeleted:
		out.Type = EventNodeDeleted
	case conn.EventNodeDataChanged:
		out.Type = EventNodeDataChanged
	case conn.EventNodeChildrenChanged:
		out.Type = EventNodeChildrenChanged
	}
	c.opts.defaultWatcher(out)
}

// translateState collapses the core's transient Connecting/Associating
// states into the one externally meaningful "disconnected", per the
// comment on zk.State.
func translateState(s conn.State) State {
	switch s {
	case conn.Connected:
		return StateConnected
	case conn.Closed:
		return StateClosed
	case conn.AuthFailed:
		return StateAuthFailed
	default:
		return StateDisconnected
	}
}

// Close idempotently tears down the session. After Close returns, every
// in-flight and subsequent call fails with a "zk: client closed" error.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SessionID returns the currently negotiated session id, usable with
// WithSessionResumption to reattach a future Client to this session.
func (c *Client) SessionID() int64 { return c.conn.SessionID() }

// SessionPassword returns the opaque password paired with SessionID.
func (c *Client) SessionPassword() []byte { return c.conn.SessionPassword() }

// State reports the client's externally visible connection state.
func (c *Client) State() State { return translateState(c.conn.State()) }

func (c *Client) submit(ctx context.Context, reqType int32, body []byte, watch *conn.WatchSpec) (conn.Result, error) {
	res, err := c.conn.Submit(ctx, reqType, body, watch)
	if err == nil {
		return res, nil
	}
	var wireErr *conn.WireError
	if errors.As(err, &wireErr) {
		return res, errFromCode(ErrCode(wireErr.Code), "")
	}
	switch {
	case errors.Is(err, conn.ErrConnectionLoss):
		return res, ErrConnectionLoss
	case errors.Is(err, conn.ErrSessionExpired):
		return res, ErrSessionExpired
	case errors.Is(err, conn.ErrAuthFailed):
		return res, ErrAuthFailed
	case errors.Is(err, conn.ErrClosed):
		return res, fmt.Errorf("zk: client closed")
	}
	return res, err
}

// withPath attaches path to whatever *Error submit's generic translation
// produced, since the core has no notion of paths.
func withPath(err error, path string) error {
	if err == nil {
		return nil
	}
	var ze *Error
	if errors.As(err, &ze) {
		return newError(ze.Code, path)
	}
	return err
}

// watchSpec builds the *conn.WatchSpec for a per-call watcher. path here is
// the server path (chroot attached), matching what WatchRegistry indexes
// by and what the eventual notification's Event.Path carries; the handler
// strips the chroot back off before invoking the caller's Watcher.
func (c *Client) watchSpec(path string, kind conn.WatchKind, w Watcher) *conn.WatchSpec {
	if w == nil {
		return nil
	}
	return &conn.WatchSpec{
		Path: path,
		Kind: kind,
		Handler: func(e conn.Event) {
			out := Event{Err: e.Err}
			if e.Path != "" {
				out.Path = stripChroot(c.chroot, e.Path)
			}
			switch e.Type {
			case conn.EventNodeCreated:
				out.Type = EventNodeCreated
			case conn.EventNodeDeleted:
				out.Type = EventNodeDeleted
			case conn.EventNodeDataChanged:
				out.Type = EventNodeDataChanged
			case conn.EventNodeChildrenChanged:
				out.Type = EventNodeChildrenChanged
			}
			w(out)
		},
	}
}

func toWireACL(acl []ACL) []wire.ACL {
	if acl == nil {
		return nil
	}
	out := make([]wire.ACL, len(acl))
	for i, a := range acl {
		out[i] = wire.ACL{Perms: int32(a.Perms), Scheme: a.ID.Scheme, ID: a.ID.ID}
	}
	return out
}

func fromWireACL(acl []wire.ACL) []ACL {
	if acl == nil {
		return nil
	}
	out := make([]ACL, len(acl))
	for i, a := range acl {
		out[i] = ACL{Perms: Perm(a.Perms), ID: Id{Scheme: a.Scheme, ID: a.ID}}
	}
	return out
}

func fromWireStat(s wire.Stat) Stat {
	return Stat{
		Czxid:          s.Czxid,
		Mzxid:          s.Mzxid,
		Ctime:          s.Ctime,
		Mtime:          s.Mtime,
		Version:        s.Version,
		Cversion:       s.Cversion,
		Aversion:       s.Aversion,
		EphemeralOwner: s.EphemeralOwner,
		DataLength:     s.DataLength,
		NumChildren:    s.NumChildren,
		Pzxid:          s.Pzxid,
	}
}

// Create adds a znode at path with data and acl, per the persistence/
// sequencing mode requested. acl must be non-empty: an empty ACL is
// rejected locally (spec.md section 6), since a node with no ACL at all
// can never be administered again. Returns the path actually created
// (with any sequence suffix the server appended), chroot-stripped.
func (c *Client) Create(ctx context.Context, path string, data []byte, acl []ACL, mode CreateMode) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	if len(acl) == 0 {
		return "", newError(ErrCodeInvalidACL, path)
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodeCreateRequest(wire.CreateRequest{
		Path:       serverPath,
		Data:       data,
		ACL:        toWireACL(acl),
		Ephemeral:  mode.isEphemeral(),
		Sequential: mode.isSequential(),
	})
	res, err := c.submit(ctx, wire.OpCreate, body, nil)
	if err != nil {
		return "", withPath(err, path)
	}
	created, err := wire.DecodeCreateResponse(res.Body)
	if err != nil {
		return "", withPath(err, path)
	}
	return stripChroot(c.chroot, created), nil
}

// Delete removes the znode at path if its version matches, or
// unconditionally when version is -1.
func (c *Client) Delete(ctx context.Context, path string, version int32) error {
	if err := validatePath(path); err != nil {
		return err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodeDeleteRequest(wire.DeleteRequest{Path: serverPath, Version: version})
	_, err := c.submit(ctx, wire.OpDelete, body, nil)
	return withPath(err, path)
}

// Exists reports whether path exists and its Stat if so. A NoNode result
// is not an error here (spec.md section 6's "NoNode -> null" rule): it
// returns (nil, false, nil). When watch is non-nil, it fires exactly once
// on either a later change to path (if it exists now) or its creation (if
// it doesn't).
func (c *Client) Exists(ctx context.Context, path string, watch Watcher) (*Stat, bool, error) {
	if err := validatePath(path); err != nil {
		return nil, false, err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodePathWatchRequest(wire.PathWatchRequest{Path: serverPath, Watch: watch != nil})
	spec := c.watchSpec(serverPath, conn.WatchExist, watch)
	res, err := c.submit(ctx, wire.OpExists, body, spec)
	if err != nil {
		if errors.Is(err, ErrNoNode) {
			return nil, false, nil
		}
		return nil, false, withPath(err, path)
	}
	stat, err := wire.DecodeStatResponse(res.Body)
	if err != nil {
		return nil, false, withPath(err, path)
	}
	out := fromWireStat(stat)
	return &out, true, nil
}

// GetData returns the data and Stat at path. When watch is non-nil, it
// fires once on the next data change or deletion of path.
func (c *Client) GetData(ctx context.Context, path string, watch Watcher) ([]byte, Stat, error) {
	if err := validatePath(path); err != nil {
		return nil, Stat{}, err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodePathWatchRequest(wire.PathWatchRequest{Path: serverPath, Watch: watch != nil})
	spec := c.watchSpec(serverPath, conn.WatchData, watch)
	res, err := c.submit(ctx, wire.OpGetData, body, spec)
	if err != nil {
		return nil, Stat{}, withPath(err, path)
	}
	data, stat, err := wire.DecodeGetDataResponse(res.Body)
	if err != nil {
		return nil, Stat{}, withPath(err, path)
	}
	return data, fromWireStat(stat), nil
}

// SetData replaces the data at path if its version matches, or
// unconditionally when version is -1. Returns the node's new Stat.
func (c *Client) SetData(ctx context.Context, path string, data []byte, version int32) (Stat, error) {
	if err := validatePath(path); err != nil {
		return Stat{}, err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodeSetDataRequest(wire.SetDataRequest{Path: serverPath, Data: data, Version: version})
	res, err := c.submit(ctx, wire.OpSetData, body, nil)
	if err != nil {
		return Stat{}, withPath(err, path)
	}
	stat, err := wire.DecodeStatResponse(res.Body)
	return fromWireStat(stat), withPath(err, path)
}

// GetACL returns the ACL list and Stat at path.
func (c *Client) GetACL(ctx context.Context, path string) ([]ACL, Stat, error) {
	if err := validatePath(path); err != nil {
		return nil, Stat{}, err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodePathRequest(serverPath)
	res, err := c.submit(ctx, wire.OpGetACL, body, nil)
	if err != nil {
		return nil, Stat{}, withPath(err, path)
	}
	acl, stat, err := wire.DecodeGetACLResponse(res.Body)
	if err != nil {
		return nil, Stat{}, withPath(err, path)
	}
	return fromWireACL(acl), fromWireStat(stat), nil
}

// SetACL replaces the ACL list at path if its version matches, or
// unconditionally when version is -1. acl must be non-empty, enforced
// locally for the same reason as Create.
func (c *Client) SetACL(ctx context.Context, path string, acl []ACL, version int32) (Stat, error) {
	if err := validatePath(path); err != nil {
		return Stat{}, err
	}
	if len(acl) == 0 {
		return Stat{}, newError(ErrCodeInvalidACL, path)
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodeSetACLRequest(wire.SetACLRequest{Path: serverPath, ACL: toWireACL(acl), Version: version})
	res, err := c.submit(ctx, wire.OpSetACL, body, nil)
	if err != nil {
		return Stat{}, withPath(err, path)
	}
	stat, err := wire.DecodeStatResponse(res.Body)
	return fromWireStat(stat), withPath(err, path)
}

// GetChildren returns the immediate child names at path (unqualified, not
// full paths). When watch is non-nil, it fires once on the next child
// added or removed under path, or on path's own deletion.
func (c *Client) GetChildren(ctx context.Context, path string, watch Watcher) ([]string, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodePathWatchRequest(wire.PathWatchRequest{Path: serverPath, Watch: watch != nil})
	spec := c.watchSpec(serverPath, conn.WatchChild, watch)
	res, err := c.submit(ctx, wire.OpGetChildren, body, spec)
	if err != nil {
		return nil, withPath(err, path)
	}
	children, err := wire.DecodeGetChildrenResponse(res.Body)
	return children, withPath(err, path)
}

// Sync flushes any pending writes to path's subtree through to the leader
// before the reply returns, matching the real protocol's read-your-writes
// escape hatch for clients reading from a different server than the one
// they wrote through.
func (c *Client) Sync(ctx context.Context, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	serverPath := prependChroot(c.chroot, path)
	body := wire.EncodePathRequest(serverPath)
	_, err := c.submit(ctx, wire.OpSync, body, nil)
	return withPath(err, path)
}
