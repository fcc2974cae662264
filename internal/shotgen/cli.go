package shotgen

import "os"

// ShowHelp prints usage information for the gen-shots tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`rinkxg shot generator
=====================

Writes a synthetic shot CSV and optionally probes a running service with it.

Usage:
  go run ./cmd/gen-shots [options]

Options:
  -out string
        CSV file to write (default "shots.csv")
  -players int
        Number of players (default 60)
  -shots int
        Mean shots per player and strength state (default 40)
  -strengths string
        Comma separated strength states (default "ev,pp,sh")
  -seed uint
        RNG seed (default 1)
  -probe
        Probe the service after writing
  -url string
        Base URL of the service (default "http://localhost:9080")
  -workers int
        Number of concurrent probe workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log every probe result
  -help
        Show this help message

Examples:
  # Generate a table and serve it
  go run ./cmd/gen-shots -out shots.csv && RINKXG_SOURCE_PATH=shots.csv go run ./cmd

  # Check a running service
  go run ./cmd/gen-shots -probe -url http://localhost:9080
`)
}
