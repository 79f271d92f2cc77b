package conn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatchRegistryInstallAndConsumeOneShot(t *testing.T) {
	w := NewWatchRegistry()
	var fired []Event
	w.Install("/a", WatchData, func(e Event) { fired = append(fired, e) })

	handlers := w.Consume("/a", WatchData)
	require.Len(t, handlers, 1)
	handlers[0](Event{Type: EventNodeDataChanged, Path: "/a"})
	require.Len(t, fired, 1)

	// Second consume finds nothing: watches are one-shot.
	require.Empty(t, w.Consume("/a", WatchData))
}

func TestWatchRegistryKindsAreIndependent(t *testing.T) {
	w := NewWatchRegistry()
	w.Install("/a", WatchData, func(Event) {})
	w.Install("/a", WatchExist, func(Event) {})
	w.Install("/a", WatchChild, func(Event) {})

	require.Len(t, w.Consume("/a", WatchData), 1)
	require.Len(t, w.Consume("/a", WatchExist), 1)
	require.Len(t, w.Consume("/a", WatchChild), 1)
}

func TestWatchRegistryInstallNilHandlerIsNoop(t *testing.T) {
	w := NewWatchRegistry()
	w.Install("/a", WatchData, nil)
	require.Empty(t, w.Consume("/a", WatchData))
}

func TestWatchRegistryMultipleHandlersSamePath(t *testing.T) {
	w := NewWatchRegistry()
	w.Install("/a", WatchData, func(Event) {})
	w.Install("/a", WatchData, func(Event) {})
	require.Len(t, w.Consume("/a", WatchData), 2)
}

func TestWatchRegistryDrainAllFiresEverything(t *testing.T) {
	w := NewWatchRegistry()
	var count int
	w.Install("/a", WatchData, func(Event) { count++ })
	w.Install("/b", WatchExist, func(Event) { count++ })
	w.Install("/c", WatchChild, func(Event) { count++ })

	handlers := w.DrainAll()
	require.Len(t, handlers, 3)
	for _, h := range handlers {
		h(Event{Type: EventStateChange, State: Closed})
	}
	require.Equal(t, 3, count)

	// Nothing left to consume after a drain.
	require.Empty(t, w.Consume("/a", WatchData))
	require.Empty(t, w.Consume("/b", WatchExist))
	require.Empty(t, w.Consume("/c", WatchChild))
}
