package repository

import "time"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SQLiteStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithChunkSize sets how many rows Batches reads per query.
func WithChunkSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.chunk = n
		}
	}
}
