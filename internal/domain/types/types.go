// Package types contains common types used across the application
package types

import (
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/raster"
)

// Mode selects what a comparison surface shows.
type Mode string

// Comparison modes.
const (
	ModeAgainstBaseline Mode = "against_baseline"
	ModeIndividual      Mode = "individual"
)

// Modes lists every supported mode in rendering order.
func Modes() []Mode {
	return []Mode{ModeAgainstBaseline, ModeIndividual}
}

// Legend returns the colour scale title for the mode.
func (m Mode) Legend() string {
	if m == ModeIndividual {
		return "Individual xG"
	}
	return "Difference vs. League xG"
}

// ComparisonResult is the surface handed to renderers.
type ComparisonResult struct {
	PlayerID      string
	StrengthState string
	Mode          Mode

	// Grid holds player minus baseline, or the player surface alone.
	Grid raster.Grid

	// Lower and Upper bound the colour scale; Upper == -Lower.
	Lower float64
	Upper float64

	// DataMin and DataMax are the raw extent of Grid.
	DataMin float64
	DataMax float64

	// ShowScale is false when the scale would mislead, as for individual
	// surfaces whose values are all non-negative.
	ShowScale bool

	// PlayerSamples is the number of player rows behind Grid.
	PlayerSamples int
}

// PlayerSummary maps a player id to a display name and shot volume.
type PlayerSummary struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Shots      int    `json:"shots"`
}

// PlotJob asks a precompute worker to build and store one plot.
type PlotJob struct {
	RunID         string
	SourceVersion string
	PlayerID      string
	StrengthState string
	Mode          Mode

	// Samples are the player's rows for StrengthState, gathered once per run.
	Samples []model.Sample
}

// Key identifies the plot independent of the run.
func (j PlotJob) Key() string {
	return j.PlayerID + "|" + j.StrengthState + "|" + string(j.Mode)
}

// PlotImage is a rendered comparison.
type PlotImage struct {
	Data []byte
	Key  string

	// Precomputed is true when Data came from the plot store.
	Precomputed bool
}

// ReloadResult describes a completed source reload.
type ReloadResult struct {
	SourceVersion string `json:"source_version"`
	Rows          int    `json:"rows,omitempty"`
	Renormalized  bool   `json:"renormalized"`
}
