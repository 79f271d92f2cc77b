// Package zktest is an in-memory fixture server for exercising pkg/zk end
// to end: it speaks the same frame codec and request/response bodies as a
// real deployment (pkg/zk/conn and pkg/zk/wire) but keeps its whole tree in
// memory and understands nothing about quorum, persistence, or multi-server
// coordination. It exists only to give integration tests something to dial
// into; production code never imports this package.
package zktest

import "github.com/mikekulinski/zkconn/pkg/zk/wire"

// znode is one node in the in-memory tree, grounded on the teacher's
// znode.ZNode: a name, a data blob, a children map, and the metadata the
// facade's Stat type exposes.
type znode struct {
	name     string
	data     []byte
	acl      []wire.ACL
	stat     wire.Stat
	children map[string]*znode
	// nextSequential is the counter appended to sequential children created
	// under this node, mirroring the teacher's ZNode.NextSequentialNode.
	nextSequential int
}

func newZnode(name string, data []byte, acl []wire.ACL, ephemeralOwner, zxid, now int64) *znode {
	return &znode{
		name:     name,
		data:     data,
		acl:      acl,
		children: make(map[string]*znode),
		stat: wire.Stat{
			Czxid:          zxid,
			Mzxid:          zxid,
			Ctime:          now,
			Mtime:          now,
			EphemeralOwner: ephemeralOwner,
			DataLength:     int32(len(data)),
			Pzxid:          zxid,
		},
	}
}
