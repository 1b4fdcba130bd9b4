// Package poller provides the fixed-cadence polling loop for countboard.
//
// This package is internal to countboard and owns the refresh lifecycle:
// when polling is enabled a fetch fires immediately and then once per tick,
// with an in-flight guard so a slow fetch is never overlapped by the next
// tick. Fetch starts and completions are emitted as [Event] values on a
// channel consumed by the orchestrator.
//
// The main components are:
//
//   - [Scheduler]: the idle/polling state machine and tick loop
//   - [Event]: a fetch start or completion
//   - [Fetcher]: the single-method view of the data source
//
// Users of the countboard library should not need to interact with this
// package directly. Configuration is done through the main countboard
// package.
package poller
