package zk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikekulinski/zkconn/pkg/zk/conn"
	"github.com/mikekulinski/zkconn/pkg/zk/wire"
)

// fakeConn is a hand-rolled stand-in for conn.ClientConnection: it lets the
// facade tests drive Create/Delete/Exists/etc. without a real socket or
// session engine, the same seam newWithConn exists for.
type fakeConn struct {
	state    conn.State
	sid      int64
	passwd   []byte
	lastZxid int64
	watches  *conn.WatchRegistry

	submitted []submitCall
	resp      conn.Result
	err       error

	installWatch bool
}

type submitCall struct {
	reqType int32
	body    []byte
	watch   *conn.WatchSpec
}

func newFakeConn() *fakeConn {
	return &fakeConn{state: conn.Connected, watches: conn.NewWatchRegistry()}
}

func (f *fakeConn) Start() {}

func (f *fakeConn) Submit(ctx context.Context, reqType int32, body []byte, watch *conn.WatchSpec) (conn.Result, error) {
	f.submitted = append(f.submitted, submitCall{reqType: reqType, body: body, watch: watch})
	if f.installWatch && watch != nil {
		f.watches.Install(watch.Path, watch.Kind, watch.Handler)
	}
	return f.resp, f.err
}

func (f *fakeConn) State() conn.State             { return f.state }
func (f *fakeConn) SessionID() int64              { return f.sid }
func (f *fakeConn) SessionPassword() []byte       { return f.passwd }
func (f *fakeConn) LastZxidSeen() int64           { return f.lastZxid }
func (f *fakeConn) Watches() *conn.WatchRegistry  { return f.watches }
func (f *fakeConn) Close() error                  { f.state = conn.Closed; return nil }

var _ conn.ClientConnection = (*fakeConn)(nil)

func newTestClient(fc *fakeConn, chroot string) *Client {
	return newWithConn(fc, chroot, defaultOptions())
}

func TestClientCreateRejectsEmptyACLLocally(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(fc, "")

	_, err := c.Create(context.Background(), "/a", []byte("d"), nil, Persistent)
	require.True(t, errors.Is(err, ErrInvalidACL))
	require.Empty(t, fc.submitted, "an invalid ACL must never reach Submit")
}

func TestClientCreateRejectsBadPathLocally(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(fc, "")

	_, err := c.Create(context.Background(), "relative", []byte("d"), OpenACLUnsafe, Persistent)
	require.Error(t, err)
	require.Empty(t, fc.submitted)
}

func TestClientCreatePrependsChrootAndStripsResponse(t *testing.T) {
	fc := newFakeConn()
	fc.resp = conn.Result{Body: wire.EncodeCreateResponse("/root/a")}
	c := newTestClient(fc, "/root")

	got, err := c.Create(context.Background(), "/a", []byte("d"), OpenACLUnsafe, Persistent)
	require.NoError(t, err)
	require.Equal(t, "/a", got)

	require.Len(t, fc.submitted, 1)
	require.Equal(t, wire.OpCreate, fc.submitted[0].reqType)
	req, err := wire.DecodeCreateRequest(fc.submitted[0].body)
	require.NoError(t, err)
	require.Equal(t, "/root/a", req.Path)
}

func TestClientCreateEphemeralSequentialModeFlags(t *testing.T) {
	fc := newFakeConn()
	fc.resp = conn.Result{Body: wire.EncodeCreateResponse("/a0000000001")}
	c := newTestClient(fc, "")

	_, err := c.Create(context.Background(), "/a", nil, OpenACLUnsafe, EphemeralSequential)
	require.NoError(t, err)

	req, err := wire.DecodeCreateRequest(fc.submitted[0].body)
	require.NoError(t, err)
	require.True(t, req.Ephemeral)
	require.True(t, req.Sequential)
}

func TestClientDeleteSendsVersionAndPath(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(fc, "/root")

	err := c.Delete(context.Background(), "/a", 3)
	require.NoError(t, err)

	req, err := wire.DecodeDeleteRequest(fc.submitted[0].body)
	require.NoError(t, err)
	require.Equal(t, "/root/a", req.Path)
	require.EqualValues(t, 3, req.Version)
}

func TestClientExistsNoNodeReturnsNilFalseNilError(t *testing.T) {
	fc := newFakeConn()
	fc.err = &conn.WireError{Code: int32(ErrCodeNoNode)}
	c := newTestClient(fc, "")

	stat, found, err := c.Exists(context.Background(), "/a", nil)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, stat)
}

func TestClientExistsInstallsWatchAtServerPath(t *testing.T) {
	fc := newFakeConn()
	fc.installWatch = true
	fc.resp = conn.Result{Body: wire.EncodeStatResponse(wire.Stat{Version: 1})}
	c := newTestClient(fc, "/root")

	fired := make(chan Event, 1)
	_, found, err := c.Exists(context.Background(), "/a", func(e Event) { fired <- e })
	require.NoError(t, err)
	require.True(t, found)

	handlers := fc.watches.Consume("/root/a", conn.WatchExist)
	require.Len(t, handlers, 1)
	handlers[0](conn.Event{Type: conn.EventNodeDeleted, Path: "/root/a"})

	select {
	case e := <-fired:
		require.Equal(t, EventNodeDeleted, e.Type)
		require.Equal(t, "/a", e.Path, "watch handler must strip chroot before delivering to caller")
	default:
		t.Fatal("watch handler was not invoked")
	}
}

func TestClientGetDataDecodesDataAndStat(t *testing.T) {
	fc := newFakeConn()
	fc.resp = conn.Result{Body: wire.EncodeGetDataResponse([]byte("hello"), wire.Stat{Version: 5})}
	c := newTestClient(fc, "")

	data, stat, err := c.GetData(context.Background(), "/a", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	require.EqualValues(t, 5, stat.Version)
}

func TestClientSetDataSendsVersion(t *testing.T) {
	fc := newFakeConn()
	fc.resp = conn.Result{Body: wire.EncodeStatResponse(wire.Stat{Version: 2})}
	c := newTestClient(fc, "")

	stat, err := c.SetData(context.Background(), "/a", []byte("v2"), -1)
	require.NoError(t, err)
	require.EqualValues(t, 2, stat.Version)

	req, err := wire.DecodeSetDataRequest(fc.submitted[0].body)
	require.NoError(t, err)
	require.EqualValues(t, -1, req.Version)
}

func TestClientSetACLRejectsEmptyACLLocally(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(fc, "")

	_, err := c.SetACL(context.Background(), "/a", nil, -1)
	require.True(t, errors.Is(err, ErrInvalidACL))
	require.Empty(t, fc.submitted)
}

func TestClientGetACLRoundTrip(t *testing.T) {
	fc := newFakeConn()
	fc.resp = conn.Result{Body: wire.EncodeGetACLResponse(
		[]wire.ACL{{Perms: int32(PermAll), Scheme: "world", ID: "anyone"}},
		wire.Stat{Aversion: 1},
	)}
	c := newTestClient(fc, "")

	acl, stat, err := c.GetACL(context.Background(), "/a")
	require.NoError(t, err)
	require.Equal(t, OpenACLUnsafe, acl)
	require.EqualValues(t, 1, stat.Aversion)
}

func TestClientGetChildrenDecodesList(t *testing.T) {
	fc := newFakeConn()
	fc.resp = conn.Result{Body: wire.EncodeGetChildrenResponse([]string{"x", "y"})}
	c := newTestClient(fc, "")

	children, err := c.GetChildren(context.Background(), "/a", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, children)
}

func TestClientSubmitTranslatesConnectionLoss(t *testing.T) {
	fc := newFakeConn()
	fc.err = conn.ErrConnectionLoss
	c := newTestClient(fc, "")

	err := c.Delete(context.Background(), "/a", -1)
	require.True(t, errors.Is(err, ErrConnectionLoss))
}

func TestClientSubmitTranslatesSessionExpired(t *testing.T) {
	fc := newFakeConn()
	fc.err = conn.ErrSessionExpired
	c := newTestClient(fc, "")

	err := c.Delete(context.Background(), "/a", -1)
	require.True(t, errors.Is(err, ErrSessionExpired))
}

func TestClientSubmitTranslatesWireErrorWithPath(t *testing.T) {
	fc := newFakeConn()
	fc.err = &conn.WireError{Code: int32(ErrCodeNodeExists)}
	c := newTestClient(fc, "")

	err := c.Delete(context.Background(), "/a", -1)
	require.True(t, errors.Is(err, ErrNodeExists))

	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	require.Equal(t, "/a", zerr.Path)
}

func TestClientStateTranslatesTransientStatesToDisconnected(t *testing.T) {
	fc := newFakeConn()
	fc.state = conn.Associating
	c := newTestClient(fc, "")
	require.Equal(t, StateDisconnected, c.State())

	fc.state = conn.Connecting
	require.Equal(t, StateDisconnected, c.State())

	fc.state = conn.Connected
	require.Equal(t, StateConnected, c.State())
}

func TestClientCloseDelegatesToConnection(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(fc, "")
	require.NoError(t, c.Close())
	require.Equal(t, conn.Closed, fc.state)
}

func TestClientSessionIDAndPassword(t *testing.T) {
	fc := newFakeConn()
	fc.sid = 99
	fc.passwd = []byte("pw")
	c := newTestClient(fc, "")
	require.EqualValues(t, 99, c.SessionID())
	require.Equal(t, []byte("pw"), c.SessionPassword())
}

func TestClientSyncSendsPath(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(fc, "/root")

	err := c.Sync(context.Background(), "/a")
	require.NoError(t, err)

	path, err := wire.DecodePathRequest(fc.submitted[0].body)
	require.NoError(t, err)
	require.Equal(t, "/root/a", path)
}
