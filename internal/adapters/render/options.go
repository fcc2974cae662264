package render

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithSize sets the square image edge in pixels.
func WithSize(px int) Option {
	return func(r *Renderer) {
		if px >= 200 {
			r.size = px
		}
	}
}

// WithCellRadius sets the dot radius of a grid cell, in feet.
func WithCellRadius(feet float64) Option {
	return func(r *Renderer) {
		if feet > 0 {
			r.cellRadius = feet
		}
	}
}
