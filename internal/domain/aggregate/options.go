package aggregate

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinSamples sets the smallest subset that is rasterized.
func WithMinSamples(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minSamples = n
		}
	}
}
