// Package compare builds player comparison surfaces with zero-centred
// colour bounds.
package compare

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/internal/domain/types"
)

// ParseMode resolves a mode name. "against_league" is accepted as an alias
// of against_baseline and an empty name defaults to it.
func ParseMode(s string) (types.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(types.ModeAgainstBaseline), "against_league":
		return types.ModeAgainstBaseline, nil
	case string(types.ModeIndividual):
		return types.ModeIndividual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// SymmetricBounds mirrors the larger magnitude of lo and hi around zero so
// the returned pair always satisfies upper == -lower. A flat zero surface
// yields (0, 0).
func SymmetricBounds(lo, hi float64) (float64, float64) {
	m := math.Max(math.Abs(lo), math.Abs(hi))
	if m == 0 {
		return 0, 0
	}
	return -m, m
}

// Diff returns player minus baseline cell by cell.
func Diff(player, baseline raster.Grid) (raster.Grid, error) {
	if !player.SameShape(baseline) {
		return raster.Grid{}, fmt.Errorf("%w: player %dx%d, baseline %dx%d",
			ErrShapeMismatch, player.Rows, player.Cols, baseline.Rows, baseline.Cols)
	}
	out := raster.NewGrid(player.Rows, player.Cols)
	for i, v := range player.Values {
		out.Values[i] = v - baseline.Values[i]
	}
	return out, nil
}

// Build assembles the comparison result for mode. baseline is required for
// against_baseline and ignored for individual.
func Build(player raster.Grid, baseline *raster.Grid, mode types.Mode) (types.ComparisonResult, error) {
	var surface raster.Grid
	switch mode {
	case types.ModeAgainstBaseline:
		if baseline == nil {
			return types.ComparisonResult{}, ErrMissingBaseline
		}
		d, err := Diff(player, *baseline)
		if err != nil {
			return types.ComparisonResult{}, err
		}
		surface = d
	case types.ModeIndividual:
		surface = player.Clone()
	default:
		return types.ComparisonResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	dataMin, dataMax := surface.MinMax()
	lower, upper := SymmetricBounds(dataMin, dataMax)
	return types.ComparisonResult{
		Mode:      mode,
		Grid:      surface,
		Lower:     lower,
		Upper:     upper,
		DataMin:   dataMin,
		DataMax:   dataMax,
		ShowScale: mode != types.ModeIndividual,
	}, nil
}
