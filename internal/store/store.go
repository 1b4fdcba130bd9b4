package store

import "time"

// Reading is the storage representation of one people-count row, optimized
// for JSON serialization (used by the REST API and SSE). It is decoupled
// from the source package's type to allow independent evolution.
type Reading struct {
	// ID is the row's unique identifier.
	ID int64 `json:"id"`

	// CreatedAt is the row's creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// PeopleCount is the observed count.
	PeopleCount int `json:"people_count"`
}

// State is the dashboard's entire view state: the current reading set plus
// the control and refresh status the presentation layer renders from.
//
// State values are snapshots; the Readings slice in a snapshot is never
// shared with the store's own copy.
type State struct {
	// Readings is the current reading set in ascending created_at order.
	Readings []Reading `json:"readings"`

	// Threshold is the alert threshold; values above it trigger the banner.
	Threshold int `json:"threshold"`

	// PollingEnabled reports whether the refresh loop is active.
	PollingEnabled bool `json:"polling_enabled"`

	// Refreshing is true while a fetch is in flight.
	Refreshing bool `json:"refreshing"`

	// LastRefreshed is the completion time of the last successful fetch,
	// or nil if none has succeeded yet.
	LastRefreshed *time.Time `json:"last_refreshed"`

	// LastError is the message of the most recent fetch failure. Cleared
	// by the next successful fetch.
	LastError string `json:"last_error,omitempty"`
}

// Store defines the interface for the dashboard's view state.
//
// Store implementations must be safe for concurrent access. Every mutation
// notifies subscribers with a fresh snapshot, which is how state changes
// reach connected clients (e.g. via Server-Sent Events).
type Store interface {
	// SetReadings replaces the reading set after a successful fetch,
	// records at as the last refresh time, and clears the refreshing flag
	// and any previous fetch error.
	SetReadings(readings []Reading, at time.Time)

	// SetRefreshing sets the in-flight flag.
	SetRefreshing(refreshing bool)

	// SetFetchError records a fetch failure and clears the refreshing
	// flag. The reading set and last refresh time are left unchanged.
	SetFetchError(msg string)

	// SetThreshold updates the alert threshold.
	SetThreshold(threshold int)

	// SetPolling updates the polling flag.
	SetPolling(enabled bool)

	// Snapshot returns a copy of the current state.
	Snapshot() State

	// Subscribe returns a channel that receives a snapshot after every
	// mutation. The channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan State

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan State)
}
