// Package aggregate streams shot events in bounded chunks and reduces the
// matching subset to a single surface.
package aggregate

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/internal/domain/types"
)

// DefaultMinSamples is the smallest subset that is rasterized.
const DefaultMinSamples = 4

// Source yields normalized shot events in chunks. Every call to Batches
// starts a fresh pass over the data.
type Source interface {
	Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error]

	// Version changes whenever the underlying events change.
	Version(ctx context.Context) (string, error)
}

// PlayerLister is implemented by sources that can list players without a
// full scan.
type PlayerLister interface {
	Players(ctx context.Context, strength string) ([]types.PlayerSummary, error)
}

// Rasterizer turns samples into a surface.
type Rasterizer interface {
	Rasterize(ctx context.Context, samples []model.Sample) (raster.Grid, error)
}

// Filter selects the events of one strength state and optionally one player.
// An empty PlayerID selects the whole league.
type Filter struct {
	StrengthState string
	PlayerID      string
}

func (f Filter) String() string {
	if f.PlayerID == "" {
		return "league@" + f.StrengthState
	}
	return f.PlayerID + "@" + f.StrengthState
}

// Subset is the accumulated result of one pass.
type Subset struct {
	Samples []model.Sample

	// PlayerRows counts rows of the filtered player in any strength state.
	PlayerRows int
	Rows       int
	Chunks     int
}

// Matched is the number of rows that passed the filter.
func (s Subset) Matched() int { return len(s.Samples) }

// Aggregator applies the minimum-volume policy before rasterizing.
type Aggregator struct {
	raster     Rasterizer
	minSamples int
}

// New creates an Aggregator over r.
func New(r Rasterizer, opts ...Option) *Aggregator {
	a := &Aggregator{
		raster:     r,
		minSamples: DefaultMinSamples,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MinSamples returns the configured threshold.
func (a *Aggregator) MinSamples() int { return a.minSamples }

// Collect reads src once and accumulates the rows matching f.
func (a *Aggregator) Collect(ctx context.Context, src Source, f Filter) (Subset, error) {
	var sub Subset
	for batch, err := range src.Batches(ctx) {
		if err != nil {
			return Subset{}, err
		}
		if err := ctx.Err(); err != nil {
			return Subset{}, err
		}
		sub.Chunks++
		sub.Rows += len(batch)
		for i := range batch {
			e := &batch[i]
			if f.PlayerID != "" {
				if e.PlayerID != f.PlayerID {
					continue
				}
				sub.PlayerRows++
			}
			if e.StrengthStateCode != f.StrengthState {
				continue
			}
			sub.Samples = append(sub.Samples, e.Sample())
		}
	}
	return sub, nil
}

// Grid collects the subset for f and rasterizes it once. A player with no
// rows at all yields ErrUnknownEntity; fewer matching rows than the
// threshold yields ErrInsufficientData without touching the rasterizer.
func (a *Aggregator) Grid(ctx context.Context, src Source, f Filter) (raster.Grid, Subset, error) {
	sub, err := a.Collect(ctx, src, f)
	if err != nil {
		return raster.Grid{}, Subset{}, fmt.Errorf("collect %s: %w", f, err)
	}
	if f.PlayerID != "" && sub.PlayerRows == 0 {
		return raster.Grid{}, sub, fmt.Errorf("player %q: %w", f.PlayerID, model.ErrUnknownEntity)
	}
	g, err := a.Rasterize(ctx, sub.Samples)
	if err != nil {
		return raster.Grid{}, sub, fmt.Errorf("%s: %w", f, err)
	}
	return g, sub, nil
}

// Rasterize applies the threshold to an already collected sample set.
func (a *Aggregator) Rasterize(ctx context.Context, samples []model.Sample) (raster.Grid, error) {
	if len(samples) < a.minSamples {
		return raster.Grid{}, fmt.Errorf("%d samples, need %d: %w", len(samples), a.minSamples, model.ErrInsufficientData)
	}
	return a.raster.Rasterize(ctx, samples)
}

// GroupByPlayer collects the samples of every player in one strength state
// with a single pass over src.
func (a *Aggregator) GroupByPlayer(ctx context.Context, src Source, strength string) (map[string][]model.Sample, error) {
	out := make(map[string][]model.Sample)
	for batch, err := range src.Batches(ctx) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range batch {
			e := &batch[i]
			if e.StrengthStateCode != strength {
				continue
			}
			out[e.PlayerID] = append(out[e.PlayerID], e.Sample())
		}
	}
	return out, nil
}

// Players lists the players of src ordered by id, counting rows in strength
// (every state when empty). Sources implementing PlayerLister answer
// directly.
func Players(ctx context.Context, src Source, strength string) ([]types.PlayerSummary, error) {
	if l, ok := src.(PlayerLister); ok {
		return l.Players(ctx, strength)
	}
	byID := make(map[string]*types.PlayerSummary)
	for batch, err := range src.Batches(ctx) {
		if err != nil {
			return nil, err
		}
		for i := range batch {
			e := &batch[i]
			if strength != "" && e.StrengthStateCode != strength {
				continue
			}
			p, ok := byID[e.PlayerID]
			if !ok {
				p = &types.PlayerSummary{PlayerID: e.PlayerID}
				byID[e.PlayerID] = p
			}
			if e.PlayerName != "" {
				p.PlayerName = e.PlayerName
			}
			p.Shots++
		}
	}
	out := make([]types.PlayerSummary, 0, len(byID))
	for _, p := range byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}
