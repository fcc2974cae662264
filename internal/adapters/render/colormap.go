package render

import (
	"image/color"
	"math"
)

// rdBuR is the reversed ColorBrewer RdBu diverging scale: dark blue for the
// lower bound, near white at the midpoint, dark red for the upper bound.
var rdBuR = []color.RGBA{ //nolint:gochecknoglobals // read-only palette
	{5, 48, 97, 255},
	{33, 102, 172, 255},
	{67, 147, 195, 255},
	{146, 197, 222, 255},
	{209, 229, 240, 255},
	{247, 247, 247, 255},
	{253, 219, 199, 255},
	{244, 165, 130, 255},
	{214, 96, 77, 255},
	{178, 24, 43, 255},
	{103, 0, 31, 255},
}

// Normalize maps v into [0, 1] over [lo, hi]. A collapsed range maps every
// value to the midpoint.
func Normalize(v, lo, hi float64) float64 {
	if hi <= lo || math.IsNaN(v) {
		return 0.5
	}
	t := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, t))
}

// Color returns the palette colour at t in [0, 1], interpolating linearly
// between stops.
func Color(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(rdBuR)-1)
	i := int(math.Floor(pos))
	if i >= len(rdBuR)-1 {
		return rdBuR[len(rdBuR)-1]
	}
	f := pos - float64(i)
	a, b := rdBuR[i], rdBuR[i+1]
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + f*(float64(y)-float64(x)))) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}
