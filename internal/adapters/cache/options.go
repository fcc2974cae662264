package cache

import (
	"time"

	"github.com/okian/rinkxg/pkg/logger"
)

// Option applies a configuration option to Baselines.
type Option func(*Baselines)

// WithRemote adds a shared tier behind the in-process map.
func WithRemote(r Remote) Option {
	return func(b *Baselines) {
		if r != nil {
			b.remote = r
		}
	}
}

// WithLogger sets the logger used for remote tier warnings.
func WithLogger(l logger.Logger) Option {
	return func(b *Baselines) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSize bounds the number of grids kept in process.
func WithSize(n int) Option {
	return func(b *Baselines) {
		if n > 0 {
			b.size = n
		}
	}
}

// WithComputeTimeout bounds one shared computation.
func WithComputeTimeout(d time.Duration) Option {
	return func(b *Baselines) {
		if d > 0 {
			b.computeTimeout = d
		}
	}
}
