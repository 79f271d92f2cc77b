package zktest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikekulinski/zkconn/pkg/zk"
	"github.com/mikekulinski/zkconn/pkg/zk/conn"
	"github.com/mikekulinski/zkconn/pkg/zk/wire"
)

func openACL() []wire.ACL {
	return []wire.ACL{{Perms: int32(zk.PermAll), Scheme: "world", ID: "anyone"}}
}

func TestDBCreateAndGetData(t *testing.T) {
	db := NewDB()
	path, code := db.Create("/a", []byte("hello"), openACL(), false, false, 0)
	require.Equal(t, zk.ErrCodeOK, code)
	require.Equal(t, "/a", path)

	data, stat, code := db.GetData("/a", nil)
	require.Equal(t, zk.ErrCodeOK, code)
	require.Equal(t, []byte("hello"), data)
	require.EqualValues(t, 0, stat.Version)
}

func TestDBCreateDuplicateIsNodeExists(t *testing.T) {
	db := NewDB()
	_, code := db.Create("/a", nil, openACL(), false, false, 0)
	require.Equal(t, zk.ErrCodeOK, code)

	_, code = db.Create("/a", nil, openACL(), false, false, 0)
	require.Equal(t, zk.ErrCodeNodeExists, code)
}

func TestDBCreateMissingParentIsNoNode(t *testing.T) {
	db := NewDB()
	_, code := db.Create("/a/b", nil, openACL(), false, false, 0)
	require.Equal(t, zk.ErrCodeNoNode, code)
}

func TestDBCreateSequentialAppendsCounter(t *testing.T) {
	db := NewDB()
	p1, code := db.Create("/job-", nil, openACL(), false, true, 0)
	require.Equal(t, zk.ErrCodeOK, code)
	p2, code := db.Create("/job-", nil, openACL(), false, true, 0)
	require.Equal(t, zk.ErrCodeOK, code)
	require.NotEqual(t, p1, p2)
	require.Equal(t, "/job-0000000000", p1)
	require.Equal(t, "/job-0000000001", p2)
}

func TestDBCreateEphemeralUnderEphemeralIsRejected(t *testing.T) {
	db := NewDB()
	_, code := db.Create("/a", nil, openACL(), true, false, 7)
	require.Equal(t, zk.ErrCodeOK, code)

	_, code = db.Create("/a/b", nil, openACL(), false, false, 7)
	require.Equal(t, zk.ErrCodeNoChildrenForEphemeral, code)
}

func TestDBDeleteRejectsNonEmptyNode(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), false, false, 0)
	db.Create("/a/b", nil, openACL(), false, false, 0)

	code := db.Delete("/a", -1)
	require.Equal(t, zk.ErrCodeNotEmpty, code)
}

func TestDBDeleteVersionMismatch(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), false, false, 0)

	code := db.Delete("/a", 5)
	require.Equal(t, zk.ErrCodeBadVersion, code)
}

func TestDBDeleteMissingNodeIsNoNode(t *testing.T) {
	db := NewDB()
	require.Equal(t, zk.ErrCodeNoNode, db.Delete("/missing", -1))
}

func TestDBSetDataVersionCheckAndBump(t *testing.T) {
	db := NewDB()
	db.Create("/a", []byte("v0"), openACL(), false, false, 0)

	stat, code := db.SetData("/a", []byte("v1"), 0)
	require.Equal(t, zk.ErrCodeOK, code)
	require.EqualValues(t, 1, stat.Version)

	_, code = db.SetData("/a", []byte("v2"), 0)
	require.Equal(t, zk.ErrCodeBadVersion, code)
}

func TestDBSetACLVersionCheckAndBump(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), false, false, 0)

	newACL := []wire.ACL{{Perms: int32(zk.PermRead), Scheme: "world", ID: "anyone"}}
	stat, code := db.SetACL("/a", newACL, 0)
	require.Equal(t, zk.ErrCodeOK, code)
	require.EqualValues(t, 1, stat.Aversion)

	acl, _, code := db.GetACL("/a")
	require.Equal(t, zk.ErrCodeOK, code)
	require.Equal(t, newACL, acl)
}

func TestDBGetChildren(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), false, false, 0)
	db.Create("/a/x", nil, openACL(), false, false, 0)
	db.Create("/a/y", nil, openACL(), false, false, 0)

	children, code := db.GetChildren("/a", nil)
	require.Equal(t, zk.ErrCodeOK, code)
	require.ElementsMatch(t, []string{"x", "y"}, children)
}

func TestDBExistsInstallsWatchEvenOnNoNode(t *testing.T) {
	db := NewDB()
	fired := make(chan string, 1)
	_, found := db.Exists("/a", func(eventType conn.EventType, path string) { fired <- path })
	require.False(t, found)

	_, code := db.Create("/a", nil, openACL(), false, false, 0)
	require.Equal(t, zk.ErrCodeOK, code)

	select {
	case p := <-fired:
		require.Equal(t, "/a", p)
	default:
		t.Fatal("exist watch should have fired on creation")
	}
}

func TestDBDataWatchFiresOnSetDataOnce(t *testing.T) {
	db := NewDB()
	db.Create("/a", []byte("v0"), openACL(), false, false, 0)

	var fireCount int
	_, _, code := db.GetData("/a", func(conn.EventType, string) { fireCount++ })
	require.Equal(t, zk.ErrCodeOK, code)

	db.SetData("/a", []byte("v1"), -1)
	db.SetData("/a", []byte("v2"), -1)

	require.Equal(t, 1, fireCount)
}

func TestDBChildWatchFiresOnceOnChildCreate(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), false, false, 0)

	var events []conn.EventType
	db.GetChildren("/a", func(eventType conn.EventType, path string) { events = append(events, eventType) })

	db.Create("/a/x", nil, openACL(), false, false, 0)
	require.Equal(t, []conn.EventType{conn.EventNodeChildrenChanged}, events)

	// One-shot: a second child watch must be re-registered to fire again.
	db.Create("/a/y", nil, openACL(), false, false, 0)
	require.Equal(t, []conn.EventType{conn.EventNodeChildrenChanged}, events)
}

func TestDBDeleteFiresDataAndExistWatches(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), false, false, 0)

	var dataFired, existFired bool
	db.GetData("/a", func(conn.EventType, string) { dataFired = true })
	db.Exists("/a", func(conn.EventType, string) { existFired = true })

	code := db.Delete("/a", -1)
	require.Equal(t, zk.ErrCodeOK, code)
	require.True(t, dataFired)
	require.True(t, existFired)
}

func TestDBDeleteEphemeralIgnoresVersion(t *testing.T) {
	db := NewDB()
	db.Create("/a", nil, openACL(), true, false, 7)
	db.DeleteEphemeral("/a")
	_, found := db.Exists("/a", nil)
	require.False(t, found)
}
