// Package store provides the dashboard's view state with pub/sub updates.
//
// This package is internal to countboard and owns the single [State] value
// the presentation layer renders from: the current reading set, the alert
// threshold, and the polling/refresh status. It implements a
// publish-subscribe pattern so every mutation reaches connected dashboard
// clients in real time.
//
// The main components are:
//
//   - [Store]: interface defining the mutation and subscription operations
//   - [MemoryStore]: in-memory implementation of Store with pub/sub
//   - [State]: the snapshot type handed to subscribers and the API
//
// The store is designed for concurrent access with proper synchronization.
// Subscribers receive snapshots via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
//
// Users of the countboard library should not need to interact with this
// package directly. State is managed internally by the Board.
package store
