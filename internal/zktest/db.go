package zktest

import (
	"strings"
	"sync"
	"time"

	"github.com/mikekulinski/zkconn/pkg/zk"
	"github.com/mikekulinski/zkconn/pkg/zk/conn"
	"github.com/mikekulinski/zkconn/pkg/zk/wire"
)

// watchKind mirrors conn.WatchKind on the server side of the wire: which
// map a registration belongs to and, by extension, which mutations should
// consume and fire it.
type watchKind int

const (
	watchData watchKind = iota
	watchExist
	watchChild
)

type watchEntry struct {
	kind   watchKind
	notify func(eventType conn.EventType, path string)
}

// DB is the source of truth for the fixture's whole tree, grounded on the
// teacher's znode.DB: one root node, one lock, and path-walking helpers.
// Unlike the teacher, it also owns the server-side half of watch
// registration (the teacher left this as a TODO); each entry fires exactly
// once, matching spec.md section 3's one-shot rule.
type DB struct {
	mu   sync.RWMutex
	root *znode
	zxid int64

	watchMu sync.Mutex
	watches map[string][]watchEntry
}

func NewDB() *DB {
	return &DB{
		root:    newZnode("", nil, nil, 0, 0, nowMillis()),
		watches: make(map[string][]watchEntry),
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func splitPath(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(path, "/")[1:]
}

func findNode(start *znode, names []string) *znode {
	node := start
	for _, name := range names {
		child, ok := node.children[name]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

func (d *DB) nextZxid() int64 {
	d.zxid++
	return d.zxid
}

// CurrentZxid returns the highest zxid assigned so far, used to stamp
// every response envelope regardless of whether that particular request
// mutated the tree.
func (d *DB) CurrentZxid() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.zxid
}

// Watch registers notify to fire the next time path's tree membership or
// contents change in a way relevant to kind. Callers hold no lock; Watch
// takes its own.
func (d *DB) Watch(path string, kind watchKind, notify func(conn.EventType, string)) {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	d.watches[path] = append(d.watches[path], watchEntry{kind: kind, notify: notify})
}

// fire consumes every registered entry at path whose kind is in kinds and
// invokes notify with eventType, one shot each, then drops the empty slice.
func (d *DB) fire(path string, eventType conn.EventType, kinds ...watchKind) {
	d.watchMu.Lock()
	entries := d.watches[path]
	if len(entries) == 0 {
		d.watchMu.Unlock()
		return
	}
	var remaining []watchEntry
	var toFire []watchEntry
	for _, e := range entries {
		matched := false
		for _, k := range kinds {
			if e.kind == k {
				matched = true
				break
			}
		}
		if matched {
			toFire = append(toFire, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		delete(d.watches, path)
	} else {
		d.watches[path] = remaining
	}
	d.watchMu.Unlock()

	for _, e := range toFire {
		e.notify(eventType, path)
	}
}

// Create adds a node at path. Returns the created path (including any
// sequential suffix) or an error code, matching pkg/zk/errors.go's table
// so the response envelope can carry it straight through.
func (d *DB) Create(path string, data []byte, acl []wire.ACL, ephemeral, sequential bool, ownerSession int64) (string, zk.ErrCode) {
	names := splitPath(path)
	if len(names) == 0 {
		return "", zk.ErrCodeBadArguments
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	parent := findNode(d.root, names[:len(names)-1])
	if parent == nil {
		return "", zk.ErrCodeNoNode
	}
	if parent.stat.EphemeralOwner != 0 {
		return "", zk.ErrCodeNoChildrenForEphemeral
	}

	newName := names[len(names)-1]
	if sequential {
		newName = seqName(newName, parent.nextSequential)
	}
	if _, exists := parent.children[newName]; exists {
		return "", zk.ErrCodeNodeExists
	}

	zxid := d.nextZxid()
	owner := int64(0)
	if ephemeral {
		owner = ownerSession
	}
	node := newZnode(newName, data, acl, owner, zxid, nowMillis())
	parent.children[newName] = node
	if sequential {
		parent.nextSequential++
	}
	parent.stat.Cversion++
	parent.stat.Mzxid = zxid

	fullPath := joinPath(names[:len(names)-1], newName)

	d.fire(fullPath, conn.EventNodeCreated, watchExist)
	d.fire(parentPath(fullPath), conn.EventNodeChildrenChanged, watchChild)
	return fullPath, zk.ErrCodeOK
}

func seqName(base string, n int) string {
	const digits = "0000000000"
	suffix := itoa(n)
	if len(suffix) < len(digits) {
		suffix = digits[:len(digits)-len(suffix)] + suffix
	}
	return base + suffix
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func joinPath(ancestors []string, name string) string {
	if len(ancestors) == 0 {
		return "/" + name
	}
	return "/" + strings.Join(ancestors, "/") + "/" + name
}

// Delete removes the leaf node at path if version matches (or version is
// -1). Deleting a node fires its own data/exist/child watches and its
// parent's child watch.
func (d *DB) Delete(path string, version int32) zk.ErrCode {
	names := splitPath(path)
	if len(names) == 0 {
		return zk.ErrCodeBadArguments
	}

	d.mu.Lock()
	parent := findNode(d.root, names[:len(names)-1])
	if parent == nil {
		d.mu.Unlock()
		return zk.ErrCodeNoNode
	}
	name := names[len(names)-1]
	node, ok := parent.children[name]
	if !ok {
		d.mu.Unlock()
		return zk.ErrCodeNoNode
	}
	if version != -1 && version != node.stat.Version {
		d.mu.Unlock()
		return zk.ErrCodeBadVersion
	}
	if len(node.children) > 0 {
		d.mu.Unlock()
		return zk.ErrCodeNotEmpty
	}
	delete(parent.children, name)
	parent.stat.Cversion++
	parent.stat.Mzxid = d.nextZxid()
	d.mu.Unlock()

	d.fire(path, conn.EventNodeDeleted, watchData, watchExist, watchChild)
	d.fire(parentPath(path), conn.EventNodeChildrenChanged, watchChild)
	return zk.ErrCodeOK
}

func parentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// Exists reports whether path exists and its Stat. When watch is non-nil
// it is registered regardless of the outcome, per spec.md section 6's
// EXIST-installs-on-NoNode-too rule.
func (d *DB) Exists(path string, watch func(conn.EventType, string)) (wire.Stat, bool) {
	d.mu.RLock()
	node := findNode(d.root, splitPath(path))
	var stat wire.Stat
	found := node != nil
	if found {
		stat = node.stat
	}
	d.mu.RUnlock()

	if watch != nil {
		d.Watch(path, watchExist, watch)
	}
	return stat, found
}

// GetData returns data and Stat at path. A watch is only installed when
// the node exists, matching pkg/zk/conn's shouldInstall rule.
func (d *DB) GetData(path string, watch func(conn.EventType, string)) ([]byte, wire.Stat, zk.ErrCode) {
	d.mu.RLock()
	node := findNode(d.root, splitPath(path))
	if node == nil {
		d.mu.RUnlock()
		return nil, wire.Stat{}, zk.ErrCodeNoNode
	}
	data, stat := node.data, node.stat
	d.mu.RUnlock()

	if watch != nil {
		d.Watch(path, watchData, watch)
	}
	return data, stat, zk.ErrCodeOK
}

// SetData replaces data at path if version matches (or version is -1).
func (d *DB) SetData(path string, data []byte, version int32) (wire.Stat, zk.ErrCode) {
	d.mu.Lock()
	node := findNode(d.root, splitPath(path))
	if node == nil {
		d.mu.Unlock()
		return wire.Stat{}, zk.ErrCodeNoNode
	}
	if version != -1 && version != node.stat.Version {
		d.mu.Unlock()
		return wire.Stat{}, zk.ErrCodeBadVersion
	}
	node.data = data
	node.stat.Version++
	node.stat.Mzxid = d.nextZxid()
	node.stat.Mtime = nowMillis()
	node.stat.DataLength = int32(len(data))
	stat := node.stat
	d.mu.Unlock()

	d.fire(path, conn.EventNodeDataChanged, watchData, watchExist)
	return stat, zk.ErrCodeOK
}

// GetACL returns the ACL list and Stat at path.
func (d *DB) GetACL(path string) ([]wire.ACL, wire.Stat, zk.ErrCode) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	node := findNode(d.root, splitPath(path))
	if node == nil {
		return nil, wire.Stat{}, zk.ErrCodeNoNode
	}
	return node.acl, node.stat, zk.ErrCodeOK
}

// SetACL replaces the ACL list at path if version matches (or version is -1).
func (d *DB) SetACL(path string, acl []wire.ACL, version int32) (wire.Stat, zk.ErrCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	node := findNode(d.root, splitPath(path))
	if node == nil {
		return wire.Stat{}, zk.ErrCodeNoNode
	}
	if version != -1 && version != node.stat.Aversion {
		return wire.Stat{}, zk.ErrCodeBadVersion
	}
	node.acl = acl
	node.stat.Aversion++
	node.stat.Mzxid = d.nextZxid()
	return node.stat, zk.ErrCodeOK
}

// GetChildren returns the immediate child names at path. A watch is only
// installed when the node exists.
func (d *DB) GetChildren(path string, watch func(conn.EventType, string)) ([]string, zk.ErrCode) {
	d.mu.RLock()
	node := findNode(d.root, splitPath(path))
	if node == nil {
		d.mu.RUnlock()
		return nil, zk.ErrCodeNoNode
	}
	children := make([]string, 0, len(node.children))
	for name := range node.children {
		children = append(children, name)
	}
	d.mu.RUnlock()

	if watch != nil {
		d.Watch(path, watchChild, watch)
	}
	return children, zk.ErrCodeOK
}

// DeleteEphemeral removes an ephemeral node without a version check, used
// to clean up a session's nodes when the session ends (an explicit close
// or expiry). Grounded on the teacher's
// Server.CloseSession, which does the same by re-issuing Delete requests.
func (d *DB) DeleteEphemeral(path string) {
	d.Delete(path, -1)
}
