package store

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe access to the single [State] value with
// a publish-subscribe mechanism for real-time updates. Subscribers receive
// snapshots via buffered channels (buffer size 16). Updates are sent
// non-blocking; if a subscriber's buffer is full, the snapshot is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu    sync.RWMutex
	state State

	subMu       sync.RWMutex
	subscribers map[chan State]struct{}
}

// NewMemoryStore creates a [MemoryStore] with the given initial threshold
// and polling flag. The store is immediately ready for use; no cleanup is
// required when done.
func NewMemoryStore(threshold int, pollingEnabled bool) *MemoryStore {
	return &MemoryStore{
		state: State{
			Threshold:      threshold,
			PollingEnabled: pollingEnabled,
		},
		subscribers: make(map[chan State]struct{}),
	}
}

// SetReadings replaces the reading set and marks a successful refresh.
func (m *MemoryStore) SetReadings(readings []Reading, at time.Time) {
	m.mu.Lock()
	m.state.Readings = copyReadings(readings)
	m.state.LastRefreshed = &at
	m.state.Refreshing = false
	m.state.LastError = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// SetRefreshing sets the in-flight flag.
func (m *MemoryStore) SetRefreshing(refreshing bool) {
	m.mu.Lock()
	m.state.Refreshing = refreshing
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// SetFetchError records a fetch failure. The prior readings and last
// refresh time survive so the dashboard keeps showing the last good data.
func (m *MemoryStore) SetFetchError(msg string) {
	m.mu.Lock()
	m.state.LastError = msg
	m.state.Refreshing = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// SetThreshold updates the alert threshold.
func (m *MemoryStore) SetThreshold(threshold int) {
	m.mu.Lock()
	m.state.Threshold = threshold
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// SetPolling updates the polling flag.
func (m *MemoryStore) SetPolling(enabled bool) {
	m.mu.Lock()
	m.state.PollingEnabled = enabled
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// Snapshot returns a copy of the current state.
func (m *MemoryStore) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// snapshotLocked copies the state. Caller must hold at least a read lock.
func (m *MemoryStore) snapshotLocked() State {
	snap := m.state
	snap.Readings = copyReadings(m.state.Readings)
	return snap
}

// Subscribe creates a new subscription and returns a channel for receiving
// state snapshots.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan State {
	ch := make(chan State, 16)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown
// channel.
func (m *MemoryStore) Unsubscribe(ch <-chan State) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the
// snapshot is dropped for that subscriber rather than blocking the update
// path.
func (m *MemoryStore) notifySubscribers(snap State) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the snapshot
		}
	}
}

// copyReadings returns a copy of the slice, or nil if input is nil.
func copyReadings(readings []Reading) []Reading {
	if readings == nil {
		return nil
	}
	cp := make([]Reading, len(readings))
	copy(cp, readings)
	return cp
}
