// Package raster turns scattered shot samples into a dense surface over the
// attacking half of the rink.
package raster

import "math"

// Grid is a dense row-major surface. Row j holds mesh y[j] and column i
// holds mesh x[i].
type Grid struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
}

// NewGrid allocates a zero-filled grid.
func NewGrid(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

// At returns the value at row r, column c.
func (g Grid) At(r, c int) float64 {
	return g.Values[r*g.Cols+c]
}

// Set stores v at row r, column c.
func (g Grid) Set(r, c int, v float64) {
	g.Values[r*g.Cols+c] = v
}

// SameShape reports whether both grids have identical dimensions.
func (g Grid) SameShape(o Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols && len(g.Values) == len(o.Values)
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	v := make([]float64, len(g.Values))
	copy(v, g.Values)
	return Grid{Rows: g.Rows, Cols: g.Cols, Values: v}
}

// MinMax returns the smallest and largest cell values. An empty grid
// returns (0, 0).
func (g Grid) MinMax() (float64, float64) {
	if len(g.Values) == 0 {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Matrix returns the grid as a slice of rows.
func (g Grid) Matrix() [][]float64 {
	out := make([][]float64, g.Rows)
	for r := 0; r < g.Rows; r++ {
		row := make([]float64, g.Cols)
		copy(row, g.Values[r*g.Cols:(r+1)*g.Cols])
		out[r] = row
	}
	return out
}
