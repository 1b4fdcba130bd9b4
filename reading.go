package countboard

import "time"

// Reading is a single people-count measurement from the readings table.
//
// Readings are immutable value types. They are delivered to callbacks
// registered via [WithReadingsCallback] and returned by helpers such as
// [Points].
type Reading struct {
	// ID is the row identifier assigned by the readings service.
	ID int64

	// CreatedAt is when the measurement was recorded.
	CreatedAt time.Time

	// PeopleCount is the number of people counted. Never negative.
	PeopleCount int
}

// FetchResult holds the outcome of a single refresh cycle.
//
// On success Err is nil and Readings holds the full result set. On failure
// Err describes what went wrong and Readings is nil; the dashboard keeps
// showing the last good data.
type FetchResult struct {
	// Readings is the fetched result set, oldest first. Nil when Err is set.
	Readings []Reading

	// FetchedAt is when the refresh cycle started.
	FetchedAt time.Time

	// Latency is how long the fetch took.
	Latency time.Duration

	// Err is non-nil when the fetch failed.
	Err error
}
