// Package countboard provides a lightweight, embeddable dashboard for a
// people-counting readings table.
//
// Countboard is designed as an SDK-first library, allowing developers to
// point a dashboard at any REST table gateway exposing people-count rows.
// It polls the table on an interval, keeps the latest result set in memory,
// and serves a single-page dashboard with a live chart, a sortable table,
// a threshold alert, and a CSV export.
//
// # Quick Start
//
// Create a source and start the dashboard with graceful shutdown:
//
//	src, _ := countboard.NewSource("https://abc.example.co/rest/v1", "readings",
//	    countboard.WithAPIKey(os.Getenv("READINGS_API_KEY")),
//	)
//	board, _ := countboard.New(countboard.WithSource(src))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	board.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Countboard uses the functional options pattern for configuration:
//
//	board, err := countboard.New(
//	    countboard.WithSource(src),
//	    countboard.WithPollInterval(5 * time.Second),
//	    countboard.WithThreshold(15),
//	    countboard.WithRowCap(200),
//	    countboard.WithPort(9090),
//	)
//
// # Polling Control
//
// Polling can be toggled from the dashboard at runtime. By default the
// board starts fetching immediately. With [WithAccessCode] the board starts
// idle and enabling the toggle requires the code:
//
//	board, err := countboard.New(
//	    countboard.WithSource(src),
//	    countboard.WithAccessCode("sesame"),
//	)
//
// While a fetch is in flight, elapsed intervals are skipped rather than
// overlapped, so a slow source never piles up concurrent requests. Fetch
// failures leave the last good data on screen and surface a notice in the
// dashboard status line.
//
// # Callbacks
//
// Register a callback to observe refresh cycles, for example to feed an
// external alerting system:
//
//	board, err := countboard.New(
//	    countboard.WithSource(src),
//	    countboard.WithReadingsCallback(func(result countboard.FetchResult) {
//	        if result.Err != nil {
//	            log.Printf("fetch failed: %v", result.Err)
//	        }
//	    }),
//	)
//
// For YAML-driven configuration, see the config subpackage. For a runnable
// example with a mock readings service, see the example directory.
package countboard
