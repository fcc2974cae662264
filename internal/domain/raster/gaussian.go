package raster

import "math"

// truncate is the kernel half-width in standard deviations.
const truncate = 4.0

func gaussianKernel(sigma float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	w := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		w[i+radius] = v
		sum += v
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// reflect maps an out-of-range index by mirroring about the edge of the
// outermost sample: d c b a | a b c d | d c b a.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// smooth applies an isotropic Gaussian blur, first down the columns and then
// along the rows.
func smooth(g Grid, sigma float64) Grid {
	if sigma <= 0 || len(g.Values) == 0 {
		return g.Clone()
	}
	w := gaussianKernel(sigma)
	radius := len(w) / 2

	tmp := NewGrid(g.Rows, g.Cols)
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += w[k+radius] * g.At(reflect(r+k, g.Rows), c)
			}
			tmp.Set(r, c, acc)
		}
	}

	out := NewGrid(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += w[k+radius] * tmp.At(r, reflect(c+k, g.Cols))
			}
			out.Set(r, c, acc)
		}
	}
	return out
}
