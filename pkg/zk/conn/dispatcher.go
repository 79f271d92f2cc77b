package conn

import "sync"

// EventType mirrors the node/state event kinds from spec.md section 4.E.
// It is a separate type from pkg/zk's EventType (rather than the same one)
// so this package stays ignorant of facade concerns; pkg/zk translates.
type EventType int

const (
	EventStateChange EventType = iota
	EventNodeCreated
	EventNodeDeleted
	EventNodeDataChanged
	EventNodeChildrenChanged
)

// Event is what the dispatcher delivers: a state event (Type ==
// EventStateChange, Path == "") or a node event naming the server path
// (chroot still attached) that changed.
type Event struct {
	Type  EventType
	State State
	Path  string
	Err   error
}

// Dispatcher is component E from spec.md section 4.E: a single-threaded,
// FIFO event queue that serially delivers state events to the default
// watcher and node events to whichever per-path handlers the watch
// registry says should fire. Modeled on the teacher's session.Session
// (an unbuffered channel drained by one consuming goroutine) generalized
// from "requests the server needs to process" to "events the caller needs
// to observe", and composed with WatchRegistry for the consult-then-fire
// step spec.md describes.
type Dispatcher struct {
	watches        *WatchRegistry
	queue          chan func()
	defaultWatcher func(Event)

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher starts the dispatcher's worker goroutine immediately;
// Close stops it once the queue drains.
func NewDispatcher(watches *WatchRegistry, defaultWatcher func(Event)) *Dispatcher {
	if defaultWatcher == nil {
		defaultWatcher = func(Event) {}
	}
	d := &Dispatcher{
		watches:        watches,
		queue:          make(chan func(), 256),
		defaultWatcher: defaultWatcher,
		done:           make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	for fn := range d.queue {
		fn()
	}
	close(d.done)
}

// DispatchState enqueues a state event for the default watcher. Called by
// the engine on every state transition; ordering guarantee (spec.md
// section 4.E): delivered strictly before any later reply whose handler
// depends on the new state, since both flow through the single queue.
func (d *Dispatcher) DispatchState(s State, err error) {
	d.queue <- func() {
		d.defaultWatcher(Event{Type: EventStateChange, State: s, Err: err})
	}
}

// DispatchNode enqueues a watch-notification event. It consumes the
// matching watch set(s) per the spec.md section 4.E table and fires every
// handler found; if none were registered, it falls back to the default
// watcher, matching the real protocol's behavior of delivering unclaimed
// node events to the default watcher.
func (d *Dispatcher) DispatchNode(eventType EventType, path string) {
	d.queue <- func() {
		handlers := d.consumeFor(eventType, path)
		if len(handlers) == 0 {
			d.defaultWatcher(Event{Type: eventType, Path: path})
			return
		}
		for _, h := range handlers {
			h(Event{Type: eventType, Path: path})
		}
	}
}

func (d *Dispatcher) consumeFor(eventType EventType, path string) []func(Event) {
	switch eventType {
	case EventNodeCreated, EventNodeDataChanged:
		var all []func(Event)
		all = append(all, d.watches.Consume(path, WatchData)...)
		all = append(all, d.watches.Consume(path, WatchExist)...)
		return all
	case EventNodeDeleted:
		var all []func(Event)
		all = append(all, d.watches.Consume(path, WatchData)...)
		all = append(all, d.watches.Consume(path, WatchExist)...)
		all = append(all, d.watches.Consume(path, WatchChild)...)
		return all
	case EventNodeChildrenChanged:
		return d.watches.Consume(path, WatchChild)
	default:
		return nil
	}
}

// DispatchExpired drains every remaining watch and fires each with an
// Expired state event, then emits the Expired state event to the default
// watcher, all ordered after anything already queued.
func (d *Dispatcher) DispatchExpired(err error) {
	d.queue <- func() {
		for _, h := range d.watches.DrainAll() {
			h(Event{Type: EventStateChange, State: Closed, Err: err})
		}
		d.defaultWatcher(Event{Type: EventStateChange, State: Closed, Err: err})
	}
}

// Close stops the dispatcher once every already-queued event has been
// delivered. Idempotent (DESIGN NOTES "finalizer/GC-based cleanup": close
// must be safe to call from multiple contexts).
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	<-d.done
}
