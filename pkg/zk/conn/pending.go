package conn

import (
	"container/list"
	"sync"
)

// WatchSpec describes the watch a pending request should install once its
// reply arrives, if any (spec.md section 3 "Pending entry").
type WatchSpec struct {
	Path    string
	Kind    WatchKind
	Handler func(Event)
}

// pendingEntry is the data model's "Pending entry" tuple: (xid,
// request_bytes, response_decoder, watch_registration?, completion_handle).
// request_bytes/response_decoder are folded into the envelope bytes and a
// completion channel the caller reads from directly.
type pendingEntry struct {
	xid     int32
	written bool
	frame   []byte
	watch   *WatchSpec
	done    chan Result
	// cancelled marks an entry that was already written when Cancel was
	// called: the reply must still be consumed off the wire (the server
	// will send it) but discarded rather than delivered.
	cancelled bool
}

// Result is what a Submit call eventually receives: either a decoded reply
// body with the zxid it was attached to, or an error (a server error code
// wrapped by the caller, or one of the connection/session errors in
// errors.go).
type Result struct {
	Zxid int64
	Body []byte
	Err  error
}

// Registry is component C from spec.md section 4.C: an ordered outbound
// queue combined with an xid index, preserving FIFO submission order and
// guaranteeing at most one pending entry per xid.
type Registry struct {
	mu     sync.Mutex
	xids   *xidGenerator
	byXid  map[int32]*list.Element
	outbox *list.List // of *pendingEntry, front is the next to write/match
	closed bool

	// signal wakes the writer loop when a new entry is submitted, so it
	// doesn't have to busy-poll NextToWrite while idle.
	signal chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		xids:   newXidGenerator(),
		byXid:  make(map[int32]*list.Element),
		outbox: list.New(),
		signal: make(chan struct{}, 1),
	}
}

// Signal is the channel the writer loop selects on between writes.
func (r *Registry) Signal() <-chan struct{} {
	return r.signal
}

func (r *Registry) wake() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Submit assigns the next xid, appends the entry to the outbound queue,
// and returns the entry's xid plus the channel its Result will arrive on.
// Returns ErrClosed if the registry has already been drained and closed.
func (r *Registry) Submit(frame func(xid int32) []byte, watch *WatchSpec) (int32, <-chan Result, error) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return 0, nil, ErrClosed
	}

	xid := r.xids.Next()
	entry := &pendingEntry{
		xid:   xid,
		frame: frame(xid),
		watch: watch,
		done:  make(chan Result, 1),
	}
	el := r.outbox.PushBack(entry)
	r.byXid[xid] = el
	r.mu.Unlock()

	r.wake()
	return xid, entry.done, nil
}

// NextToWrite returns the next entry the writer loop should send, without
// removing it from the index (it stays pending until matched). Returns
// nil, false when the outbox is empty.
func (r *Registry) NextToWrite() (xid int32, frame []byte, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for el := r.outbox.Front(); el != nil; el = el.Next() {
		e := el.Value.(*pendingEntry)
		if !e.written {
			return e.xid, e.frame, true
		}
	}
	return 0, nil, false
}

// MarkWritten flags entry xid as sent so the writer loop doesn't
// resend it, without completing it: it stays "unacked" until Match is
// called on a reply, or Drain fails it on connection loss.
func (r *Registry) MarkWritten(xid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.byXid[xid]; ok {
		el.Value.(*pendingEntry).written = true
	}
}

// Match is called by the reader loop with the xid from an incoming reply.
// Per spec.md section 4.C, the reply's xid MUST equal the xid at the front
// of the outbound queue; any other value is a protocol error that forces
// reconnection. Match removes and completes the entry, unless it was
// cancelled after being written, in which case the reply is silently
// dropped.
func (r *Registry) Match(xid int32, result Result) (*WatchSpec, error) {
	r.mu.Lock()
	front := r.outbox.Front()
	if front == nil {
		r.mu.Unlock()
		return nil, ErrProtocolError
	}
	entry := front.Value.(*pendingEntry)
	if entry.xid != xid {
		r.mu.Unlock()
		return nil, ErrProtocolError
	}
	r.outbox.Remove(front)
	delete(r.byXid, xid)
	cancelled := entry.cancelled
	watch := entry.watch
	r.mu.Unlock()

	if !cancelled {
		entry.done <- result
	}
	return watch, nil
}

// Cancel removes entry xid if it hasn't been written yet, or marks it
// cancelled so its eventual reply is discarded (spec.md section 5
// "Cancellation and timeouts"). Reports whether the xid was found at all.
func (r *Registry) Cancel(xid int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.byXid[xid]
	if !ok {
		return false
	}
	entry := el.Value.(*pendingEntry)
	if !entry.written {
		r.outbox.Remove(el)
		delete(r.byXid, xid)
		return true
	}
	entry.cancelled = true
	return true
}

// Drain removes every pending entry and completes each with err. Used on
// Close and on session expiration/auth failure (every entry, spec.md
// section 4.D); connection loss goes through DrainUnacked instead.
func (r *Registry) Drain(err error) {
	r.mu.Lock()
	var entries []*pendingEntry
	for el := r.outbox.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*pendingEntry)
		entries = append(entries, e)
		r.outbox.Remove(el)
		delete(r.byXid, e.xid)
		el = next
	}
	r.mu.Unlock()

	for _, e := range entries {
		if !e.cancelled {
			e.done <- Result{Err: err}
		}
	}
}

// DrainUnacked removes only entries already marked written (the ambiguous
// ones spec.md section 4.D says must fail with ConnectionLoss on
// reconnect), leaving not-yet-written entries in the queue so the writer
// can retry them transparently against the next connection. This is the
// engine's only connection-loss policy: not-yet-written entries are never
// failed on connection loss.
func (r *Registry) DrainUnacked(err error) {
	r.mu.Lock()
	var entries []*pendingEntry
	for el := r.outbox.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*pendingEntry)
		if e.written {
			entries = append(entries, e)
			r.outbox.Remove(el)
			delete(r.byXid, e.xid)
		} else {
			// Not yet written: left in place, so NextToWrite hands it to
			// the writer on the next connection.
		}
		el = next
	}
	r.mu.Unlock()

	for _, e := range entries {
		if !e.cancelled {
			e.done <- Result{Err: err}
		}
	}
}

// Close marks the registry closed; subsequent Submit calls fail fast with
// ErrClosed (spec.md section 5: NOT_CONNECTED-state submissions fail fast).
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
