package raster

// Option applies a configuration option to the Rasterizer.
type Option func(*Rasterizer)

// WithResolution sets the number of mesh columns (x) and rows (y).
func WithResolution(cols, rows int) Option {
	return func(r *Rasterizer) {
		if cols > 1 && rows > 1 {
			r.cols = cols
			r.rows = rows
		}
	}
}

// WithExtent sets the surface span.
func WithExtent(xmin, xmax, ymin, ymax float64) Option {
	return func(r *Rasterizer) {
		if xmax > xmin && ymax > ymin {
			r.xmin, r.xmax = xmin, xmax
			r.ymin, r.ymax = ymin, ymax
		}
	}
}

// WithSmoothing toggles the Gaussian blur pass.
func WithSmoothing(enabled bool) Option {
	return func(r *Rasterizer) {
		r.smooth = enabled
	}
}

// WithSigma sets the blur spread in grid cells.
func WithSigma(sigma float64) Option {
	return func(r *Rasterizer) {
		if sigma > 0 {
			r.sigma = sigma
		}
	}
}
