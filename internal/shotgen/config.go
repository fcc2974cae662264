// Package shotgen generates synthetic shot tables and probes a running
// service with them.
package shotgen

import "time"

// Config holds configuration for generation and probing.
type Config struct {
	Players        int      // Number of players to generate
	ShotsPerPlayer int      // Mean shots per player and strength state
	Strengths      []string // Strength state codes to spread shots over
	Seed           uint64   // RNG seed; equal seeds give equal tables
	OutputFile     string   // CSV written by Generate

	BaseURL string        // Base URL of the service for Probe
	Workers int           // Number of concurrent probe workers
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every probe result
}

// Stats holds probe statistics.
type Stats struct {
	PlayersListed     int
	Requests          int
	Successful        int
	InsufficientData  int
	Failed            int
	InvariantFailures int
	PlotsFetched      int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// comparison is the subset of the /compare payload the probe checks.
type comparison struct {
	PlayerID string      `json:"player_id"`
	Mode     string      `json:"mode"`
	Rows     int         `json:"rows"`
	Cols     int         `json:"cols"`
	Grid     [][]float64 `json:"grid"`
	Lower    float64     `json:"lower"`
	Upper    float64     `json:"upper"`
}

type player struct {
	PlayerID string `json:"player_id"`
	Shots    int    `json:"shots"`
}
