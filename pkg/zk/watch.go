package zk

// State is one of the values the session engine's state machine can be in
// (spec.md section 3 "State" and section 4.D). It is surfaced to watchers
// as part of state-change events; callers never see CONNECTING/ASSOCIATING
// directly, only the externally meaningful subset below.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateExpired
	StateAuthFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateExpired:
		return "expired"
	case StateAuthFailed:
		return "auth failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventType distinguishes a state event (None) from the three kinds of
// node event a watch can fire (spec.md section 4.E).
type EventType int

const (
	EventNone EventType = iota
	EventNodeCreated
	EventNodeDeleted
	EventNodeDataChanged
	EventNodeChildrenChanged
)

func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventNodeCreated:
		return "node created"
	case EventNodeDeleted:
		return "node deleted"
	case EventNodeDataChanged:
		return "node data changed"
	case EventNodeChildrenChanged:
		return "node children changed"
	default:
		return "unknown"
	}
}

// Event is what a Watcher receives: either a state event (Type == EventNone,
// Path == "") or a node event with the client-visible (chroot-stripped)
// path of the znode that changed.
type Event struct {
	Type  EventType
	State State
	Path  string
	Err   error
}

// Watcher is the callback shape for both the default watcher (registered at
// construction, receives every state event) and per-call watches installed
// by Exists/GetData/GetChildren.
type Watcher func(Event)
