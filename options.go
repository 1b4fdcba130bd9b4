package countboard

import (
	"errors"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title             string
	source            *Source
	pollInterval      time.Duration
	port              int
	rowCap            int
	rowCapSet         bool
	threshold         int
	thresholdSet      bool
	gated             bool
	accessCode        string
	logger            *slog.Logger
	readingsCallbacks []func(FetchResult)
}

// Option is a function that configures a [Board] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithSource], [WithPollInterval], [WithPort],
// [WithRowCap], [WithThreshold], [WithAccessCode], [WithTitle],
// [WithLogger], [WithReadingsCallback].
type Option func(*boardConfig) error

// WithSource sets the readings table to poll.
//
// Exactly one source is required for [New] to succeed. Create one with
// [NewSource].
//
// Example:
//
//	src, _ := countboard.NewSource("https://abc.example.co/rest/v1", "readings")
//	board, err := countboard.New(countboard.WithSource(src))
func WithSource(src Source) Option {
	return func(cfg *boardConfig) error {
		if cfg.source != nil {
			return errors.New("source already configured")
		}
		cfg.source = &src
		return nil
	}
}

// WithPollInterval sets how often the readings table is fetched while
// polling is enabled.
//
// Defaults to 5 seconds if not specified. If a fetch is still in flight
// when the next interval elapses, that cycle is skipped rather than
// overlapped.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithRowCap limits how many of the most recent rows each fetch requests.
//
// A cap of 0 means unbounded: every row in the table is fetched each cycle.
// Defaults to 100 if not specified.
//
// Returns an error if the cap is negative.
func WithRowCap(n int) Option {
	return func(cfg *boardConfig) error {
		if n < 0 {
			return errors.New("row cap cannot be negative")
		}
		cfg.rowCap = n
		cfg.rowCapSet = true
		return nil
	}
}

// WithThreshold sets the initial alert threshold.
//
// The dashboard shows an alert whenever any displayed reading strictly
// exceeds the threshold. The value can be changed at runtime from the
// dashboard. Defaults to 10 if not specified.
func WithThreshold(n int) Option {
	return func(cfg *boardConfig) error {
		cfg.threshold = n
		cfg.thresholdSet = true
		return nil
	}
}

// WithAccessCode gates the polling toggle behind the given code.
//
// When set, polling starts disabled and enabling it from the dashboard
// requires the code. The comparison happens server-side in constant time;
// the code never reaches the browser. Without this option the toggle is
// open to anyone who can reach the dashboard.
//
// This is a UX speed bump for shared screens, not an authentication
// boundary.
//
// Returns an error if the code is empty.
func WithAccessCode(code string) Option {
	return func(cfg *boardConfig) error {
		if code == "" {
			return errors.New("access code cannot be empty")
		}
		cfg.gated = true
		cfg.accessCode = code
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "People Counter".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Board instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithReadingsCallback registers a function to be called after every
// refresh cycle.
//
// The callback receives a [FetchResult] with either the fetched readings
// or the error that ended the cycle. Multiple callbacks may be registered;
// they execute in registration order.
//
// Callbacks must be non-blocking. Long-running operations should dispatch
// work to a separate goroutine; blocking callbacks delay subsequent refresh
// processing.
//
// Callbacks are invoked synchronously from a single goroutine. Panics
// within callbacks are recovered and logged with a correlation ID; they do
// not crash the board.
//
// Nil callbacks are silently ignored.
func WithReadingsCallback(cb func(FetchResult)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.readingsCallbacks = append(cfg.readingsCallbacks, cb)
		return nil
	}
}
