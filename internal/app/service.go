// Package service wires sources, the rasterizer, the baseline cache and the
// plot renderer into the operations the HTTP API and the precompute tool
// call.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rinkxg/internal/adapters/blob"
	"github.com/okian/rinkxg/internal/adapters/cache"
	"github.com/okian/rinkxg/internal/adapters/render"
	"github.com/okian/rinkxg/internal/adapters/repository"
	"github.com/okian/rinkxg/internal/adapters/source"
	"github.com/okian/rinkxg/internal/domain/aggregate"
	"github.com/okian/rinkxg/internal/domain/compare"
	"github.com/okian/rinkxg/internal/domain/dedupe"
	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/logger"
	"github.com/okian/rinkxg/pkg/metrics"
)

// DefaultStrength is the strength state compared when a request names none.
const DefaultStrength = "ev"

// Service answers comparison queries over one shot source.
type Service struct {
	mu sync.RWMutex

	// Core components
	src       aggregate.Source
	csv       *source.CSV
	store     *repository.SQLiteStore
	rasterer  *raster.Rasterizer
	agg       *aggregate.Aggregator
	baselines *cache.Baselines
	renderer  *render.Renderer
	plots     blob.Store
	remote    cache.Remote
	deduper   dedupe.Deduper

	// Configuration
	sourcePath      string
	storePath       string
	chunkSize       int
	rasterOpts      []raster.Option
	minSamples      int
	defaultStrength string
	strengths       []string
	cacheEnabled    bool
	cacheSize       int
	plotPrefix      string
	plotSize        int
	workerCount     int
	queueSize       int
	dedupeSize      int

	// State
	started      bool
	precomputing atomic.Bool
	lastRun      atomic.Pointer[PrecomputeReport]

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		chunkSize:       source.DefaultChunkSize,
		minSamples:      aggregate.DefaultMinSamples,
		defaultStrength: DefaultStrength,
		strengths:       []string{DefaultStrength},
		cacheEnabled:    true,
		cacheSize:       cache.DefaultSize,
		plotPrefix:      blob.DefaultPrefix,
		workerCount:     runtime.NumCPU(),
		queueSize:       1024,
		dedupeSize:      50000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the source and builds the pipeline. With a store path the CSV
// is normalized into SQLite unless the store already holds a load.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if err := s.openSource(ctx); err != nil {
		return err
	}

	s.rasterer = raster.New(s.rasterOpts...)
	s.agg = aggregate.New(s.rasterer, aggregate.WithMinSamples(s.minSamples))
	if s.cacheEnabled {
		s.baselines = cache.NewBaselines(
			cache.WithSize(s.cacheSize),
			cache.WithRemote(s.remote),
			cache.WithLogger(s.logger.Named("baseline-cache")),
		)
	}
	var ropts []render.Option
	if s.plotSize > 0 {
		ropts = append(ropts, render.WithSize(s.plotSize))
	}
	s.renderer = render.New(ropts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.started = true
	version, _ := s.src.Version(ctx)
	s.logger.Info(ctx, "comparison service started",
		logger.String("source_version", version),
		logger.Bool("sqlite_store", s.store != nil),
		logger.Bool("baseline_cache", s.baselines != nil),
		logger.Bool("plot_store", s.plots != nil),
		logger.Int("min_samples", s.minSamples),
		logger.String("default_strength", s.defaultStrength),
	)
	return nil
}

func (s *Service) openSource(ctx context.Context) error {
	if s.src != nil {
		return nil
	}
	if s.sourcePath == "" {
		return ErrNoSource
	}
	csv, err := source.NewCSV(s.sourcePath, source.WithChunkSize(s.chunkSize))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	s.csv = csv
	if s.storePath == "" {
		s.src = csv
		return nil
	}

	st, err := repository.NewSQLiteStore(ctx, s.storePath, repository.WithChunkSize(s.chunkSize))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if _, err := st.Version(ctx); errors.Is(err, repository.ErrNotLoaded) {
		res, err := st.Load(ctx, csv)
		if err != nil {
			_ = st.Close()
			return fmt.Errorf("seed store: %w", err)
		}
		s.logger.Info(ctx, "normalized shots into store",
			logger.String("load_id", res.LoadID),
			logger.Int("rows", res.Rows),
			logger.Int("chunks", res.Chunks),
		)
	} else if err != nil {
		_ = st.Close()
		return fmt.Errorf("read store version: %w", err)
	}
	s.store = st
	s.src = st
	return nil
}

// Stop releases the store opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "closing store", logger.Error(err))
		}
		s.store = nil
	}
	if s.csv != nil {
		s.src, s.csv = nil, nil
	}
	s.started = false
	s.logger.Info(context.Background(), "comparison service stopped")
}

func (s *Service) strength(code string) string {
	if code == "" {
		return s.defaultStrength
	}
	return code
}

// pipeline returns the components under the read lock.
func (s *Service) pipeline() (aggregate.Source, *aggregate.Aggregator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.src, s.agg, nil
}

// ComparePlayer builds the comparison surface of one player. An empty
// strength uses the default state.
func (s *Service) ComparePlayer(ctx context.Context, playerID string, mode types.Mode, strength string) (res types.ComparisonResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordComparison(string(mode), outcome(err), float64(time.Since(start).Milliseconds()))
	}()

	src, agg, err := s.pipeline()
	if err != nil {
		return types.ComparisonResult{}, err
	}
	strength = s.strength(strength)

	if mode != types.ModeAgainstBaseline && mode != types.ModeIndividual {
		return types.ComparisonResult{}, fmt.Errorf("%w: %q", compare.ErrUnknownMode, mode)
	}

	rstart := time.Now()
	player, sub, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: strength, PlayerID: playerID})
	metrics.RecordRasterization("player", outcome(err), float64(time.Since(rstart).Milliseconds()))
	if err != nil {
		return types.ComparisonResult{}, err
	}

	var base *raster.Grid
	if mode == types.ModeAgainstBaseline {
		g, err := s.baseline(ctx, src, agg, strength)
		if err != nil {
			return types.ComparisonResult{}, fmt.Errorf("baseline %s: %w", strength, err)
		}
		base = &g
	}

	res, err = compare.Build(player, base, mode)
	if err != nil {
		return types.ComparisonResult{}, err
	}
	res.PlayerID = playerID
	res.StrengthState = strength
	res.PlayerSamples = sub.Matched()
	return res, nil
}

// baseline returns the league surface of strength, through the cache when
// enabled.
func (s *Service) baseline(ctx context.Context, src aggregate.Source, agg *aggregate.Aggregator, strength string) (raster.Grid, error) {
	compute := func(ctx context.Context) (raster.Grid, error) {
		start := time.Now()
		g, sub, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: strength})
		metrics.RecordRasterization("baseline", outcome(err), float64(time.Since(start).Milliseconds()))
		if err == nil {
			s.logger.Debug(ctx, "computed baseline",
				logger.String("strength", strength),
				logger.Int("samples", sub.Matched()),
				logger.Int("chunks", sub.Chunks),
			)
		}
		return g, err
	}
	if s.baselines == nil {
		return compute(ctx)
	}
	version, err := src.Version(ctx)
	if err != nil {
		return raster.Grid{}, fmt.Errorf("source version: %w", err)
	}
	return s.baselines.Get(ctx, cache.Key(strength, version, s.rasterer.Fingerprint()), compute)
}

// Players lists the players of the source with their shot counts in
// strength, or in every state when strength is empty.
func (s *Service) Players(ctx context.Context, strength string) ([]types.PlayerSummary, error) {
	src, _, err := s.pipeline()
	if err != nil {
		return nil, err
	}
	players, err := aggregate.Players(ctx, src, strength)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if strength == "" {
		metrics.UpdateTotalPlayers(len(players))
	}
	return players, nil
}

// Plot returns the PNG of a comparison, preferring a precomputed image when
// the plot store was built from the current source version. Plot store
// failures other than a missing object fall back to live rendering.
func (s *Service) Plot(ctx context.Context, playerID string, mode types.Mode, strength string) (types.PlotImage, error) {
	src, _, err := s.pipeline()
	if err != nil {
		return types.PlotImage{}, err
	}
	strength = s.strength(strength)
	key := blob.PlotKey(s.plotPrefix, playerID, strength, mode)

	if s.plots != nil && s.plotsCurrent(ctx, src) {
		data, err := s.plots.Get(ctx, key)
		if err == nil {
			return types.PlotImage{Data: data, Key: key, Precomputed: true}, nil
		}
		if !errors.Is(err, blob.ErrNotFound) {
			metrics.RecordErrorByComponent("plot_store", "get_error")
			s.logger.Warn(ctx, "plot store unavailable, rendering live",
				logger.String("key", key),
				logger.Error(err),
			)
		}
	}

	res, err := s.ComparePlayer(ctx, playerID, mode, strength)
	if err != nil {
		return types.PlotImage{}, err
	}
	data, err := s.renderer.PNG(res)
	if err != nil {
		return types.PlotImage{}, fmt.Errorf("render %s: %w", key, err)
	}
	return types.PlotImage{Data: data, Key: key}, nil
}

// plotsCurrent reports whether the stored plots were built from the source
// version being served.
func (s *Service) plotsCurrent(ctx context.Context, src aggregate.Source) bool {
	m, err := blob.GetManifest(ctx, s.plots, s.plotPrefix)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			metrics.RecordErrorByComponent("plot_store", "manifest_error")
			s.logger.Warn(ctx, "plot manifest unreadable, rendering live", logger.Error(err))
		}
		return false
	}
	version, err := src.Version(ctx)
	if err != nil {
		return false
	}
	if m.SourceVersion != version {
		metrics.RecordErrorByComponent("plot_store", "stale")
		return false
	}
	return true
}

// Reload re-reads the CSV into the store when one is used and drops every
// cached baseline.
func (s *Service) Reload(ctx context.Context) (types.ReloadResult, error) {
	s.mu.RLock()
	started, st, csv, src := s.started, s.store, s.csv, s.src
	s.mu.RUnlock()
	if !started {
		return types.ReloadResult{}, ErrNotStarted
	}

	var out types.ReloadResult
	if st != nil && csv != nil {
		res, err := st.Load(ctx, csv)
		if err != nil {
			metrics.RecordErrorByComponent("service", "reload_error")
			return types.ReloadResult{}, fmt.Errorf("reload store: %w", err)
		}
		out.Rows = res.Rows
		out.Renormalized = true
	}
	if s.baselines != nil {
		s.baselines.Purge()
	}

	version, err := src.Version(ctx)
	if err != nil {
		return types.ReloadResult{}, fmt.Errorf("source version: %w", err)
	}
	out.SourceVersion = version
	s.logger.Info(ctx, "source reloaded",
		logger.String("source_version", version),
		logger.Int("rows", out.Rows),
		logger.Bool("renormalized", out.Renormalized),
	)
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"minSamples":       s.minSamples,
		"defaultStrength":  s.defaultStrength,
		"precomputeActive": s.precomputing.Load(),
	}
	if !s.started {
		return stats
	}

	if v, err := s.src.Version(ctx); err == nil {
		stats["sourceVersion"] = v
	}
	if s.store != nil {
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedRows"] = n
		}
	}
	if s.baselines != nil {
		stats["cachedBaselines"] = s.baselines.Len()
	}
	stats["scheduledPlots"] = s.deduper.Size()
	if r := s.lastRun.Load(); r != nil {
		stats["lastPrecompute"] = *r
	}
	return stats
}
