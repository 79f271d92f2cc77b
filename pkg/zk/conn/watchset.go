package conn

import "sync"

// WatchKind is the tagged-variant discriminator DESIGN NOTES section 9
// calls for in place of a WatchRegistration class hierarchy: {Data, Exist,
// Child}, each choosing which map it lives in and whether NoNode still
// installs it.
type WatchKind int

const (
	WatchData WatchKind = iota
	WatchExist
	WatchChild
)

// WatchRegistry holds the three watch maps from spec.md section 3 ("Watch
// registration"), keyed by server path (chroot still attached; pkg/zk
// strips it before handing paths to callers). A handler is installed only
// after Engine observes the triggering operation succeeded (or, for
// WatchExist, also on NoNode) — Install is called from the reader loop for
// exactly that reason.
type WatchRegistry struct {
	mu       sync.Mutex
	data     map[string][]func(Event)
	exist    map[string][]func(Event)
	children map[string][]func(Event)
}

func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{
		data:     make(map[string][]func(Event)),
		exist:    make(map[string][]func(Event)),
		children: make(map[string][]func(Event)),
	}
}

func (w *WatchRegistry) mapFor(kind WatchKind) map[string][]func(Event) {
	switch kind {
	case WatchData:
		return w.data
	case WatchExist:
		return w.exist
	case WatchChild:
		return w.children
	default:
		return nil
	}
}

// Install adds handler to the set registered for (path, kind). Watches are
// one-shot: Consume below removes the whole set atomically when it fires.
func (w *WatchRegistry) Install(path string, kind WatchKind, handler func(Event)) {
	if handler == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.mapFor(kind)
	m[path] = append(m[path], handler)
}

// Consume removes and returns every handler registered for (path, kind),
// or nil if none were registered. Used by the dispatcher so a fired watch
// can never fire twice.
func (w *WatchRegistry) Consume(path string, kind WatchKind) []func(Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.mapFor(kind)
	handlers := m[path]
	delete(m, path)
	return handlers
}

// DrainAll removes every registered watch across all three maps and
// returns their handlers; Dispatcher.DispatchExpired invokes each with a
// session-ended event. Called once on Expired, since spec.md
// section 4.D says "after Expired, all watches are considered lost".
func (w *WatchRegistry) DrainAll() []func(Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var all []func(Event)
	for _, m := range []map[string][]func(Event){w.data, w.exist, w.children} {
		for path, handlers := range m {
			all = append(all, handlers...)
			delete(m, path)
		}
	}
	return all
}
