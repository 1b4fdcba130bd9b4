// Package main is the entry point for the countboard CLI.
//
// Countboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	countboard serve -c config.yaml    # Start the dashboard
//	countboard validate -c config.yaml # Validate configuration
//	countboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "countboard",
	Short: "A live people-counter dashboard",
	Long: `Countboard is a lightweight, real-time people-counter dashboard.

It polls a readings table at a configurable interval and displays the
counts in a web UI with a live chart, a threshold alert, and a CSV export.

Quick start:
  1. Create a config file (countboard.yaml)
  2. Run: countboard serve -c countboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 5s
  threshold: 10
  source:
    url: https://abc.example.co/rest/v1
    table: readings
    api_key: ${READINGS_API_KEY}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this countboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("countboard %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
