package source

// Option configures a source. Every source in this package is chunked, so
// options act on the chunk size.
type Option func(chunk *int)

// WithChunkSize sets the number of rows per batch.
func WithChunkSize(n int) Option {
	return func(chunk *int) {
		if n > 0 {
			*chunk = n
		}
	}
}
