package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rinkxg/internal/adapters/blob"
	"github.com/okian/rinkxg/internal/adapters/mq/queue"
	"github.com/okian/rinkxg/internal/adapters/mq/worker"
	"github.com/okian/rinkxg/internal/domain/aggregate"
	"github.com/okian/rinkxg/internal/domain/compare"
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/logger"
	"github.com/okian/rinkxg/pkg/metrics"
)

// PrecomputeReport summarizes one precompute run.
type PrecomputeReport struct {
	RunID         string        `json:"run_id"`
	SourceVersion string        `json:"source_version"`
	Strengths     []string      `json:"strengths"`
	Players       int           `json:"players"`
	Skipped       int           `json:"skipped"`
	Duplicates    int           `json:"duplicates"`
	Scheduled     int           `json:"scheduled"`
	Rendered      int64         `json:"rendered"`
	Failed        int64         `json:"failed"`
	Duration      time.Duration `json:"duration"`
}

// plan is the work of one strength state.
type plan struct {
	strength string
	players  map[string][]model.Sample

	// baselineErr is set when the league surface cannot be built, in which
	// case only individual plots are scheduled.
	baselineErr error
}

// Precompute renders every (player, strength state, mode) plot and writes it
// to the plot store. Players with fewer rows than the minimum are skipped.
// Plots already produced for the current source version are not rendered
// again.
func (s *Service) Precompute(ctx context.Context) (PrecomputeReport, error) {
	src, agg, err := s.pipeline()
	if err != nil {
		return PrecomputeReport{}, err
	}
	if s.plots == nil {
		return PrecomputeReport{}, ErrNoPlotStore
	}
	if !s.precomputing.CompareAndSwap(false, true) {
		return PrecomputeReport{}, ErrPrecomputeRunning
	}
	defer s.precomputing.Store(false)

	start := time.Now()
	version, err := src.Version(ctx)
	if err != nil {
		return PrecomputeReport{}, fmt.Errorf("source version: %w", err)
	}
	report := PrecomputeReport{
		RunID:         uuid.NewString(),
		SourceVersion: version,
		Strengths:     append([]string(nil), s.strengths...),
	}
	log := s.logger.Named("precompute")
	log.Info(ctx, "precompute started",
		logger.String("run_id", report.RunID),
		logger.String("source_version", version),
		logger.Any("strengths", report.Strengths),
	)

	plans, err := s.plan(ctx, src, agg, log)
	if err != nil {
		return PrecomputeReport{}, err
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q, worker.ProcessorFunc(s.renderJob), worker.WithPoolLogger(log))
	pool.Start(ctx)

	seen := make(map[string]struct{})
	for _, p := range plans {
		for _, id := range sortedIDs(p.players) {
			samples := p.players[id]
			seen[id] = struct{}{}
			if len(samples) < agg.MinSamples() {
				report.Skipped++
				metrics.RecordPrecomputeJob("skipped")
				continue
			}
			for _, mode := range types.Modes() {
				if mode == types.ModeAgainstBaseline && p.baselineErr != nil {
					report.Skipped++
					metrics.RecordPrecomputeJob("skipped")
					continue
				}
				j := types.PlotJob{
					RunID:         report.RunID,
					SourceVersion: version,
					PlayerID:      id,
					StrengthState: p.strength,
					Mode:          mode,
					Samples:       samples,
				}
				key := scheduleKey(j)
				if s.deduper.SeenAndRecord(ctx, key) {
					report.Duplicates++
					metrics.RecordJobDuplicate()
					continue
				}
				if err := q.Put(ctx, j); err != nil {
					s.deduper.Unrecord(ctx, key)
					_ = q.Close()
					pool.Wait()
					return PrecomputeReport{}, fmt.Errorf("schedule %s: %w", j.Key(), err)
				}
				report.Scheduled++
			}
		}
	}
	report.Players = len(seen)

	_ = q.Close()
	stats := pool.Wait()
	report.Rendered = stats.Processed
	report.Failed = stats.Failed
	report.Duration = time.Since(start)

	if report.Failed == 0 && ctx.Err() == nil {
		m := blob.Manifest{SourceVersion: version, RunID: report.RunID, CompletedAt: time.Now().UTC()}
		if err := blob.PutManifest(ctx, s.plots, s.plotPrefix, m); err != nil {
			return report, fmt.Errorf("write plot manifest: %w", err)
		}
	} else {
		log.Warn(ctx, "precompute incomplete, plot manifest not updated",
			logger.String("run_id", report.RunID),
			logger.Int("failed", int(report.Failed)),
		)
	}

	metrics.UpdatePrecomputeRun(report.Scheduled, float64(time.Now().Unix()))
	s.lastRun.Store(&report)
	log.Info(ctx, "precompute finished",
		logger.String("run_id", report.RunID),
		logger.Int("players", report.Players),
		logger.Int("scheduled", report.Scheduled),
		logger.Int("skipped", report.Skipped),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("failed", int(report.Failed)),
		logger.Duration("duration", report.Duration),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// plan groups the players of every strength state and warms the baselines,
// one goroutine per state.
func (s *Service) plan(ctx context.Context, src aggregate.Source, agg *aggregate.Aggregator, log logger.Logger) ([]plan, error) {
	plans := make([]plan, len(s.strengths))
	g, gctx := errgroup.WithContext(ctx)
	for i, strength := range s.strengths {
		g.Go(func() error {
			players, err := agg.GroupByPlayer(gctx, src, strength)
			if err != nil {
				return fmt.Errorf("group %s: %w", strength, err)
			}
			p := plan{strength: strength, players: players}
			if _, err := s.baseline(gctx, src, agg, strength); err != nil {
				if !errors.Is(err, model.ErrInsufficientData) && !errors.Is(err, model.ErrInterpolationDegenerate) {
					return fmt.Errorf("baseline %s: %w", strength, err)
				}
				p.baselineErr = err
				log.Warn(gctx, "no baseline for strength state, skipping baseline plots",
					logger.String("strength", strength),
					logger.Error(err),
				)
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// renderJob builds, renders and stores one plot.
func (s *Service) renderJob(ctx context.Context, j types.PlotJob) (err error) { //nolint:gocritic // hugeParam
	defer func() {
		if err != nil {
			metrics.RecordPrecomputeJob(outcome(err))
		} else {
			metrics.RecordPrecomputeJob("ok")
		}
	}()

	src, agg, err := s.pipeline()
	if err != nil {
		return err
	}
	key := blob.PlotKey(s.plotPrefix, j.PlayerID, j.StrengthState, j.Mode)
	defer func() {
		if err != nil {
			s.deduper.Unrecord(ctx, scheduleKey(j))
		}
	}()

	player, err := agg.Rasterize(ctx, j.Samples)
	if err != nil {
		return fmt.Errorf("player %s: %w", j.PlayerID, err)
	}
	var base *raster.Grid
	if j.Mode == types.ModeAgainstBaseline {
		g, err := s.baseline(ctx, src, agg, j.StrengthState)
		if err != nil {
			return fmt.Errorf("baseline %s: %w", j.StrengthState, err)
		}
		base = &g
	}
	res, err := compare.Build(player, base, j.Mode)
	if err != nil {
		return err
	}
	res.PlayerID = j.PlayerID
	res.StrengthState = j.StrengthState
	res.PlayerSamples = len(j.Samples)

	data, err := s.renderer.PNG(res)
	if err != nil {
		return fmt.Errorf("render %s: %w", key, err)
	}
	if err := s.plots.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// scheduleKey is the dedupe key of a job: one plot per source version.
func scheduleKey(j types.PlotJob) string { //nolint:gocritic // hugeParam
	return j.SourceVersion + "|" + j.Key()
}

func sortedIDs(m map[string][]model.Sample) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
