package service

import (
	"github.com/okian/rinkxg/internal/adapters/blob"
	"github.com/okian/rinkxg/internal/adapters/cache"
	"github.com/okian/rinkxg/internal/domain/aggregate"
	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource uses src directly instead of opening the configured CSV.
func WithSource(src aggregate.Source) Option {
	return func(s *Service) { s.src = src }
}

// WithSourcePath sets the raw shot CSV.
func WithSourcePath(path string) Option {
	return func(s *Service) { s.sourcePath = path }
}

// WithStorePath normalizes the CSV into a SQLite file (":memory:" allowed)
// and serves queries from it. Empty reads the CSV on every query.
func WithStorePath(path string) Option {
	return func(s *Service) { s.storePath = path }
}

// WithChunkSize sets the number of rows read per chunk.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithRasterOptions configures the grid rasterizer.
func WithRasterOptions(opts ...raster.Option) Option {
	return func(s *Service) { s.rasterOpts = append(s.rasterOpts, opts...) }
}

// WithMinSamples sets the smallest subset that is rasterized.
func WithMinSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSamples = n
		}
	}
}

// WithDefaultStrength sets the strength state used when a request names none.
func WithDefaultStrength(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.defaultStrength = code
		}
	}
}

// WithStrengthStates sets the states covered by Precompute.
func WithStrengthStates(codes []string) Option {
	return func(s *Service) {
		if len(codes) > 0 {
			s.strengths = append([]string(nil), codes...)
		}
	}
}

// WithBaselineCache toggles baseline memoization.
func WithBaselineCache(enabled bool) Option {
	return func(s *Service) { s.cacheEnabled = enabled }
}

// WithBaselineCacheSize bounds the number of baselines kept in memory.
func WithBaselineCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithRemoteCache adds a shared baseline tier, e.g. Redis.
func WithRemoteCache(r cache.Remote) Option {
	return func(s *Service) { s.remote = r }
}

// WithPlotStore sets where precomputed plots are written and looked up.
func WithPlotStore(st blob.Store) Option {
	return func(s *Service) { s.plots = st }
}

// WithPlotPrefix sets the object folder of precomputed plots.
func WithPlotPrefix(prefix string) Option {
	return func(s *Service) { s.plotPrefix = prefix }
}

// WithPlotSize sets the rendered image edge in pixels.
func WithPlotSize(px int) Option {
	return func(s *Service) {
		if px > 0 {
			s.plotSize = px
		}
	}
}

// WithWorkerCount sets the number of precompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the precompute job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many scheduled plot keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
