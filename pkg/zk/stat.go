package zk

// Stat is the per-znode metadata the server attaches to read/write replies.
// spec.md section 6 names "Stat" as a response field without enumerating
// its shape; these are the fields the real protocol carries and that a
// complete client needs to expose version-based optimistic concurrency
// (the Version field feeds straight back into SetData/Delete/SetACL calls).
type Stat struct {
	Czxid          int64 // zxid of the change that created the znode
	Mzxid          int64 // zxid of the change that last modified the znode
	Ctime          int64 // creation time, ms since epoch
	Mtime          int64 // last modified time, ms since epoch
	Version        int32 // number of changes to the data of this znode
	Cversion       int32 // number of changes to the children of this znode
	Aversion       int32 // number of changes to the ACL of this znode
	EphemeralOwner int64 // session id that owns this znode, 0 if persistent
	DataLength     int32 // length of the data field
	NumChildren    int32 // number of children of this znode
	Pzxid          int64 // zxid of the change that last modified children
}
