package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rinkxg/internal/adapters/blob"
	"github.com/okian/rinkxg/internal/adapters/cache"
	"github.com/okian/rinkxg/internal/config"
	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/pkg/logger"
)

// NewFromConfig builds a Service and its external clients from cfg. The
// returned closer releases the Redis and GCS clients it opened.
func NewFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	opts := []Option{
		WithLogger(log),
		WithSourcePath(cfg.SourcePath),
		WithChunkSize(cfg.ChunkSize),
		WithRasterOptions(
			raster.WithResolution(cfg.GridCols, cfg.GridRows),
			raster.WithSmoothing(cfg.Smooth),
			raster.WithSigma(cfg.Sigma),
		),
		WithMinSamples(cfg.MinSamples),
		WithDefaultStrength(cfg.DefaultStrength),
		WithStrengthStates(cfg.StrengthStates),
		WithBaselineCache(cfg.CacheEnabled),
		WithBaselineCacheSize(cfg.CacheSize),
		WithPlotPrefix(cfg.PlotPrefix),
		WithPlotSize(cfg.PlotSize),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
	}
	if cfg.UseStore {
		opts = append(opts, WithStorePath(cfg.StorePath))
	}

	if cfg.CacheEnabled && cfg.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisAddr, time.Duration(cfg.RedisTTLSeconds)*time.Second)
		if err != nil {
			// The in-process tier still works without Redis.
			log.Warn(ctx, "redis unavailable, using in-process baseline cache only",
				logger.String("addr", cfg.RedisAddr),
				logger.Error(err),
			)
		} else {
			closers = append(closers, r.Close)
			opts = append(opts, WithRemoteCache(r))
		}
	}

	switch strings.ToLower(cfg.PlotBackend) {
	case config.PlotBackendGCS:
		st, err := blob.NewGCSStore(ctx, cfg.PlotBucket, cfg.GCSCredentialsFile)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("plot store: %w", err)
		}
		closers = append(closers, st.Close)
		opts = append(opts, WithPlotStore(st))
	case config.PlotBackendFS:
		st, err := blob.NewFSStore(cfg.PlotDir)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("plot store: %w", err)
		}
		opts = append(opts, WithPlotStore(st))
	}

	return New(opts...), closeAll, nil
}
