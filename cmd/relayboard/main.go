// Package main is the entry point for the relayboard CLI.
//
// RelayBoard can be run either as a library (SDK) or as a standalone binary
// with optional YAML configuration. This CLI provides the standalone binary.
//
// Usage:
//
//	relayboard serve                     # Start with defaults on $PORT or 3000
//	relayboard serve -c relay.yaml       # Start with a config file
//	relayboard validate -c relay.yaml    # Validate configuration
//	relayboard version                   # Show version info
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
	Use:   "relayboard",
	Short: "An in-memory relay for live coordinates, images and banners",
	Long: `RelayBoard is an in-memory HTTP relay for live telemetry.

Producers POST coordinates, image URLs and banner metadata. Viewers read
the recent history over HTTP and receive updates over Server-Sent Events
or WebSocket as they arrive. Nothing is persisted.

Quick start:
  1. Run: relayboard serve
  2. Open http://localhost:3000 in your browser
  3. POST {"coordinates":[12.5,3,4]} to /api/coordinates

Example config:
  title: Course Relay
  port: 3000
  history:
    coordinate_limit: 100
  http:
    allowed_origin: "*"`,
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
	Long:  `Print the version, commit hash, and build date of this relayboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "relayboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
