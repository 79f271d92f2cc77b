package zk

// Perm is a bitmask of the operations an ACL entry grants.
type Perm int32

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermCreate
	PermDelete
	PermAdmin

	PermAll = PermRead | PermWrite | PermCreate | PermDelete | PermAdmin
)

// Id identifies the principal an ACL entry applies to, e.g. scheme "world"
// with id "anyone", or scheme "ip" with id "10.0.0.0/8".
type Id struct {
	Scheme string
	ID     string
}

// ACL is a single (permissions, principal) pair. A node's ACL list is the
// set of ACL entries that apply to it; Create and SetACL reject an empty
// list locally, before it ever reaches the wire (spec.md section 6).
type ACL struct {
	Perms Perm
	ID    Id
}

var anyoneID = Id{Scheme: "world", ID: "anyone"}

// OpenACLUnsafe grants every permission to anyone; it is the default ACL
// used by the official client and the one spec.md section 8 scenario 3
// expects a freshly created node to carry.
var OpenACLUnsafe = []ACL{{Perms: PermAll, ID: anyoneID}}

// ReadACLUnsafe grants read-only access to anyone.
var ReadACLUnsafe = []ACL{{Perms: PermRead, ID: anyoneID}}

// CreatorAllACL grants every permission to the session that created the
// node. It is resolved against the session's auth info by the server; the
// client only needs to send the sentinel Id below.
var CreatorAllACL = []ACL{{Perms: PermAll, ID: Id{Scheme: "auth", ID: ""}}}
