package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/countboard/countboard/internal/source"
)

// EventKind discriminates scheduler events.
type EventKind int

const (
	// EventFetchStarted is emitted when a fetch begins.
	EventFetchStarted EventKind = iota

	// EventFetchCompleted is emitted when a fetch finishes, successfully
	// or not.
	EventFetchCompleted
)

// Event is one scheduler occurrence. A fetch produces a started event
// followed by a completed event carrying either the readings or the error.
type Event struct {
	// Kind is the event discriminator.
	Kind EventKind

	// Readings holds the fetched rows for a successful completion.
	Readings []source.Reading

	// FetchedAt is the completion time. Zero for started events.
	FetchedAt time.Time

	// Latency is the fetch duration. Zero for started events.
	Latency time.Duration

	// Err is the fetch failure, if any.
	Err error
}

// Fetcher is the single operation the scheduler needs from the data source.
// [source.Client] implements it.
type Fetcher interface {
	FetchReadings(ctx context.Context) ([]source.Reading, error)
}

// Scheduler drives the fixed-cadence polling of one readings source.
//
// The scheduler is a two-state machine: idle (no fetches) and polling
// (a fetch immediately on entry, then one per tick). [Scheduler.Enable] and
// [Scheduler.Disable] switch between the states at runtime; whether the
// scheduler starts out polling is set at construction.
//
// A tick that fires while a fetch is still in flight is skipped rather than
// starting an overlapping fetch, so state updates cannot arrive out of
// order. Events that would be emitted after the context is cancelled are
// dropped, so a slow response cannot mutate state after teardown.
//
// All lifecycle methods are safe for concurrent use.
type Scheduler struct {
	fetcher  Fetcher
	interval time.Duration
	events   chan Event
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	enabled   bool
	inFlight  bool
	closeOnce sync.Once

	// kick wakes the loop for the immediate fetch on enable
	kick chan struct{}
}

// NewScheduler creates a [Scheduler].
//
// Parameters:
//   - fetcher: The readings source to poll
//   - interval: Time between fetches while polling
//   - startEnabled: Whether polling begins at Start (false for the gated mode)
//   - logger: Logger for scheduler events
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Events are available via [Scheduler.Events].
func NewScheduler(fetcher Fetcher, interval time.Duration, startEnabled bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		fetcher:  fetcher,
		interval: interval,
		enabled:  startEnabled,
		events:   make(chan Event, 16),
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Events returns a receive-only channel that emits [Event] values.
//
// The channel is closed when the scheduler stops. Consumers should read
// from it until it is closed to receive all events.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Enabled reports whether the scheduler is in the polling state.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Enable transitions the scheduler to the polling state and triggers an
// immediate fetch, rather than waiting for the next tick. A no-op when
// already polling.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	already := s.enabled
	s.enabled = true
	s.mu.Unlock()
	if already {
		return
	}

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Disable transitions the scheduler to the idle state. A fetch already in
// flight completes and its result is still delivered; no new fetch starts
// until Enable is called again.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

// Start begins the polling loop in a background goroutine.
//
// Start is non-blocking and returns immediately. If the scheduler was
// created with startEnabled, the first fetch is triggered right away rather
// than after the first tick.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.ctx // capture under lock to avoid race
	if s.enabled {
		// first fetch fires before the first tick; no-op if Enable
		// already queued a kick
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	// close the events channel once the context is done and every fetch
	// goroutine has finished, whether shutdown came from Stop or from the
	// parent context
	go func() {
		<-loopCtx.Done()
		s.wg.Wait()
		s.closeOnce.Do(func() { close(s.events) })
	}()

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-s.kick:
				s.dispatchFetch(loopCtx)
			case <-ticker.C:
				if s.Enabled() {
					s.dispatchFetch(loopCtx)
				}
			}
		}
	}()
}

// Stop halts the scheduler and waits for any in-flight fetch to complete.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op. The events channel is closed once all goroutines
// have finished.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.closeOnce.Do(func() { close(s.events) })
}

// dispatchFetch starts one fetch in its own goroutine unless one is already
// running. Skipping rather than queueing keeps results in order: two
// concurrent fetches could otherwise complete out of order and apply a
// stale reading set.
func (s *Scheduler) dispatchFetch(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug("fetch already in flight, skipping tick")
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		}()

		if !s.emit(ctx, Event{Kind: EventFetchStarted}) {
			return
		}

		start := time.Now()
		readings, err := s.fetcher.FetchReadings(ctx)
		s.emit(ctx, Event{
			Kind:      EventFetchCompleted,
			Readings:  readings,
			FetchedAt: time.Now(),
			Latency:   time.Since(start),
			Err:       err,
		})
	}()
}

// emit sends an event unless the scheduler context is done. Returns false
// when the event was dropped due to shutdown.
func (s *Scheduler) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
