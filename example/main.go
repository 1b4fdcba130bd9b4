package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/countboard/countboard"
)

func main() {
	// start mock readings server (see mock_server.go)
	go StartMockReadingsServer(":9999")
	time.Sleep(100 * time.Millisecond)

	src, err := countboard.NewSource("http://localhost:9999", "readings")
	if err != nil {
		slog.Error("failed to create source", "error", err)
		os.Exit(1)
	}

	// start the dashboard
	board, err := countboard.New(
		countboard.WithSource(src),
		countboard.WithPollInterval(5*time.Second),
		countboard.WithThreshold(10),
		countboard.WithPort(8080),
		countboard.WithTitle("Lobby Counter Demo"),
		countboard.WithReadingsCallback(func(result countboard.FetchResult) {
			if result.Err != nil {
				slog.Warn("fetch failed", "error", result.Err)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Countboard Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A mock readings table on :9999 gains one row        ║")
	fmt.Println("  ║   every 2 seconds; the people count random-walks.     ║")
	fmt.Println("  ║   Try lowering the threshold to trigger the alert.    ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("countboard error", "error", err)
		os.Exit(1)
	}
}
