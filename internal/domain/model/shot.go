// Package model contains domain models passed between layers.
package model

// Column names of the shot event table.
const (
	ColPlayerName    = "player_name"
	ColPlayerID      = "player_id"
	ColEventType     = "event_type"
	ColPlayPeriod    = "play_period"
	ColZoneType      = "zone_type"
	ColZone          = "zone"
	ColStrengthState = "xg_strength_state_code"
	ColXGoal         = "x_goal"
	ColXGProba       = "xg_proba"
	ColPlayDistance  = "play_distance"
	ColPlayAngle     = "play_angle"
	ColXCoord        = "x_coord"
	ColYCoord        = "y_coord"
)

// RequiredColumns lists the columns every shot source must provide.
var RequiredColumns = []string{ //nolint:gochecknoglobals // read-only column list
	ColPlayerName,
	ColPlayerID,
	ColEventType,
	ColPlayPeriod,
	ColZoneType,
	ColZone,
	ColStrengthState,
	ColXGoal,
	ColXGProba,
	ColPlayDistance,
	ColPlayAngle,
	ColXCoord,
	ColYCoord,
}

// ShotEvent is one observed shot attempt.
type ShotEvent struct {
	PlayerID   string
	PlayerName string

	// Categorical context, passed through untouched.
	EventType  string
	PlayPeriod string
	ZoneType   string
	Zone       string

	StrengthStateCode string // e.g. "ev", "pp", "sh"

	XGoal        float64
	XGProba      float64 // goal probability from the upstream xG model
	PlayDistance float64
	PlayAngle    float64

	XCoord float64 // raw rink coordinates
	YCoord float64

	AdjX float64 // attacking-right coordinates, see Normalize
	AdjY float64
}

// Sample is a single (x, y, value) point fed to the rasterizer.
type Sample struct {
	X     float64
	Y     float64
	Value float64
}

// Normalize maps a raw rink position into the frame where the shooting team
// always attacks toward positive x. Shots from negative x are reflected
// through the origin; x == 0 counts as non-negative and is left as is.
func Normalize(x, y float64) (float64, float64) {
	if x < 0 {
		return -x, -y
	}
	return x, y
}

// Normalize fills AdjX and AdjY from the raw coordinates.
func (e *ShotEvent) Normalize() {
	e.AdjX, e.AdjY = Normalize(e.XCoord, e.YCoord)
}

// Sample returns the normalized location weighted by the shot probability.
func (e *ShotEvent) Sample() Sample {
	return Sample{X: e.AdjX, Y: e.AdjY, Value: e.XGProba}
}
