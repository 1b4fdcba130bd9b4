package countboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/countboard/countboard/dashboard"
	"github.com/countboard/countboard/internal/poller"
	"github.com/countboard/countboard/internal/server"
	"github.com/countboard/countboard/internal/source"
	"github.com/countboard/countboard/internal/store"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPort         = 8080
	defaultRowCap       = 100
	defaultThreshold    = 10
)

// Board is the main orchestrator for readings polling and dashboard serving.
//
// Board coordinates periodic fetches of a remote readings table, keeps the
// latest result set in memory, and serves a real-time dashboard via HTTP.
// It is created using [New] with functional options and started with
// [Board.Start].
//
// The typical lifecycle is:
//
//	src, _ := countboard.NewSource("https://abc.example.co/rest/v1", "readings")
//	board, err := countboard.New(countboard.WithSource(src))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	board.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type Board struct {
	title             string
	source            Source
	pollInterval      time.Duration
	port              int
	rowCap            int
	threshold         int
	gated             bool
	accessCode        string
	logger            *slog.Logger
	readingsCallbacks []func(FetchResult)
}

// New creates a new [Board] instance with the given options.
//
// A source must be configured via [WithSource]. Other options have
// sensible defaults:
//   - Poll interval: 5 seconds
//   - Port: 8080
//   - Row cap: 100 most recent rows per fetch
//   - Threshold: 10
//
// Returns an error if no source is configured or if any option is invalid.
//
// Example:
//
//	board, err := countboard.New(
//	    countboard.WithSource(src),
//	    countboard.WithThreshold(15),
//	    countboard.WithAccessCode("sesame"),
//	)
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		pollInterval: defaultPollInterval,
		port:         defaultPort,
		rowCap:       defaultRowCap,
		threshold:    defaultThreshold,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.source == nil {
		return nil, errors.New("a source is required")
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:             cfg.title,
		source:            *cfg.source,
		pollInterval:      cfg.pollInterval,
		port:              cfg.port,
		rowCap:            cfg.rowCap,
		threshold:         cfg.threshold,
		gated:             cfg.gated,
		accessCode:        cfg.accessCode,
		logger:            logger,
		readingsCallbacks: cfg.readingsCallbacks,
	}, nil
}

// Start begins polling the readings table and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - Without an access code, the table is fetched immediately and then at
//     the configured interval
//   - With an access code, polling stays idle until enabled from the
//     dashboard
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//
// The caller controls the lifecycle via context cancellation. For signal
// handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	board.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// fails to start.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("countboard starting",
		"table", b.source.Table(),
		"interval", b.pollInterval.String(),
		"gated", b.gated,
	)
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	client := source.NewClient(
		b.source.BaseURL(),
		b.source.Table(),
		b.source.APIKey(),
		b.rowCap,
		b.source.Timeout(),
	)
	defer client.Close()

	// gated boards idle until the dashboard enables polling
	startEnabled := !b.gated
	readingsStore := store.NewMemoryStore(b.threshold, startEnabled)

	scheduler := poller.NewScheduler(client, b.pollInterval, startEnabled, b.logger)
	scheduler.Start(ctx)

	// track the events consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range scheduler.Events() {
			b.handleEvent(readingsStore, event)
		}
	}()

	// cleanup function ensures the scheduler is stopped and all pending
	// events are processed
	cleanup := func() {
		scheduler.Stop() // closes events channel
		wg.Wait()        // wait for all events to be processed
	}

	httpServer := server.NewServer(readingsStore, scheduler, server.Config{
		Port:       b.port,
		Assets:     dashboard.Assets,
		Title:      b.title,
		Gated:      b.gated,
		AccessCode: b.accessCode,
	}, b.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("countboard stopped")
	return nil
}

// handleEvent applies a scheduler event to the store and fires callbacks.
func (b *Board) handleEvent(st store.Store, event poller.Event) {
	switch event.Kind {
	case poller.EventFetchStarted:
		st.SetRefreshing(true)

	case poller.EventFetchCompleted:
		if event.Err != nil {
			b.logger.Warn("fetch completed with error",
				"error", event.Err.Error(),
				"latency_ms", event.Latency.Milliseconds(),
			)
			st.SetFetchError(event.Err.Error())
		} else {
			// store update first (callbacks fire after data is persisted)
			st.SetReadings(sourceToStoreReadings(event.Readings), event.FetchedAt)
			b.logger.Debug("fetch completed",
				"rows", len(event.Readings),
				"latency_ms", event.Latency.Milliseconds(),
			)
		}

		if len(b.readingsCallbacks) > 0 {
			result := eventToFetchResult(event)
			for _, cb := range b.readingsCallbacks {
				invokeCallbackSafe(cb, result, b.logger)
			}
		}
	}
}

// Source returns the configured readings source.
func (b *Board) Source() Source {
	return b.source
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollInterval returns the configured interval between refresh cycles.
func (b *Board) PollInterval() time.Duration {
	return b.pollInterval
}

// Threshold returns the initial alert threshold.
func (b *Board) Threshold() int {
	return b.threshold
}

// Gated reports whether enabling polling requires the access code.
func (b *Board) Gated() bool {
	return b.gated
}

// sourceToStoreReadings converts source readings to store readings.
func sourceToStoreReadings(readings []source.Reading) []store.Reading {
	out := make([]store.Reading, len(readings))
	for i, r := range readings {
		out[i] = store.Reading{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt,
			PeopleCount: r.PeopleCount,
		}
	}
	return out
}

// eventToFetchResult converts a scheduler event to the public API type.
// Creates a defensive copy of the readings to prevent data races.
func eventToFetchResult(event poller.Event) FetchResult {
	var readings []Reading
	if event.Err == nil {
		readings = make([]Reading, len(event.Readings))
		for i, r := range event.Readings {
			readings[i] = Reading{
				ID:          r.ID,
				CreatedAt:   r.CreatedAt,
				PeopleCount: r.PeopleCount,
			}
		}
	}

	return FetchResult{
		Readings:  readings,
		FetchedAt: event.FetchedAt,
		Latency:   event.Latency,
		Err:       event.Err,
	}
}

// invokeCallbackSafe calls a readings callback with panic recovery.
// If the callback panics, the full stack trace is logged with a correlation
// ID and processing continues.
func invokeCallbackSafe(cb func(FetchResult), result FetchResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("readings callback panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(result)
}
