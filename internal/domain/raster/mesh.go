package raster

import "math"

// Mesh holds the target coordinates of a grid, both axes ascending.
type Mesh struct {
	X []float64
	Y []float64
}

// NewMesh builds the evenly spaced mesh over [xmin,xmax] × [ymin,ymax] with
// every coordinate snapped to the nearest integer, ties to even.
func NewMesh(xmin, xmax float64, cols int, ymin, ymax float64, rows int) Mesh {
	return Mesh{
		X: RoundedLinspace(xmin, xmax, cols),
		Y: RoundedLinspace(ymin, ymax, rows),
	}
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = float64(i)*step + start
	}
	out[n-1] = stop
	return out
}

// RoundedLinspace is Linspace with each value rounded half to even, so
// -42.5 becomes -42 and 42.5 becomes 42.
func RoundedLinspace(start, stop float64, n int) []float64 {
	out := Linspace(start, stop, n)
	for i, v := range out {
		out[i] = math.RoundToEven(v)
	}
	return out
}
