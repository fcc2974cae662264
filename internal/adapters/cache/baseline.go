// Package cache memoizes league baseline surfaces. Entries are keyed by the
// strength state, the source version and the rasterizer settings, so a
// reloaded source or a different grid never reuses a stale surface.
package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/pkg/logger"
	"github.com/okian/rinkxg/pkg/metrics"
)

// Remote is an optional shared tier consulted after the in-process map.
type Remote interface {
	Get(ctx context.Context, key string) (raster.Grid, bool, error)
	Set(ctx context.Context, key string, g raster.Grid) error
}

// Key builds the cache key of one baseline.
func Key(strength, version, fingerprint string) string {
	return strings.Join([]string{"baseline", strength, version, fingerprint}, "|")
}

const (
	// DefaultSize bounds the in-process entries. Three strength states over a
	// couple of source versions fit comfortably.
	DefaultSize = 32

	// DefaultComputeTimeout bounds one shared computation.
	DefaultComputeTimeout = 5 * time.Minute
)

// Baselines is a concurrency-safe baseline cache. Concurrent misses on the
// same key share a single computation, and the least recently used grid is
// evicted once the cache is full.
type Baselines struct {
	entries *lru.Cache[string, raster.Grid]
	group   singleflight.Group

	size           int
	computeTimeout time.Duration
	remote         Remote
	logger         logger.Logger
}

// NewBaselines creates an empty cache.
func NewBaselines(opts ...Option) *Baselines {
	b := &Baselines{size: DefaultSize, computeTimeout: DefaultComputeTimeout}
	for _, opt := range opts {
		opt(b)
	}
	entries, err := lru.New[string, raster.Grid](b.size)
	if err != nil {
		// only a non-positive size fails, which options reject
		panic(err)
	}
	b.entries = entries
	return b
}

// Get returns the grid cached under key, computing it at most once across
// concurrent callers. Failed computations are not cached. The returned grid
// is shared and must be treated as read-only.
//
// The shared computation does not inherit the cancellation of whichever
// caller started it. A caller whose ctx ends stops waiting and gets
// ctx.Err(), while the others keep waiting for the result.
func (b *Baselines) Get(ctx context.Context, key string, compute func(context.Context) (raster.Grid, error)) (raster.Grid, error) {
	if g, ok := b.entries.Get(key); ok {
		metrics.RecordBaselineCache("memory", "hit")
		return g, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := b.group.DoChan(key, func() (any, error) {
		if g, ok := b.entries.Get(key); ok {
			return g, nil
		}
		metrics.RecordBaselineCache("memory", "miss")

		cctx, cancel := context.WithTimeout(shared, b.computeTimeout)
		defer cancel()

		if g, ok := b.fromRemote(cctx, key); ok {
			b.entries.Add(key, g)
			return g, nil
		}

		g, err := compute(cctx)
		if err != nil {
			return raster.Grid{}, err
		}
		b.entries.Add(key, g)
		b.toRemote(cctx, key, g)
		return g, nil
	})

	select {
	case <-ctx.Done():
		metrics.RecordBaselineCache("memory", "abandoned")
		return raster.Grid{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return raster.Grid{}, r.Err
		}
		return r.Val.(raster.Grid), nil
	}
}

// Peek returns a cached grid without computing or touching its recency.
func (b *Baselines) Peek(key string) (raster.Grid, bool) { return b.entries.Peek(key) }

// Len returns the number of cached grids.
func (b *Baselines) Len() int { return b.entries.Len() }

// Purge drops every in-process entry. The remote tier is left alone since
// its keys already carry the source version.
func (b *Baselines) Purge() { b.entries.Purge() }

// fromRemote degrades to a miss on any remote failure.
func (b *Baselines) fromRemote(ctx context.Context, key string) (raster.Grid, bool) {
	if b.remote == nil {
		return raster.Grid{}, false
	}
	g, ok, err := b.remote.Get(ctx, key)
	if err != nil {
		metrics.RecordBaselineCache("remote", "error")
		b.warn(ctx, "baseline remote get failed", key, err)
		return raster.Grid{}, false
	}
	if !ok {
		metrics.RecordBaselineCache("remote", "miss")
		return raster.Grid{}, false
	}
	metrics.RecordBaselineCache("remote", "hit")
	return g, true
}

func (b *Baselines) toRemote(ctx context.Context, key string, g raster.Grid) {
	if b.remote == nil {
		return
	}
	if err := b.remote.Set(ctx, key, g); err != nil {
		metrics.RecordBaselineCache("remote", "error")
		b.warn(ctx, "baseline remote set failed", key, err)
	}
}

func (b *Baselines) warn(ctx context.Context, msg, key string, err error) {
	if b.logger != nil {
		b.logger.Warn(ctx, msg, logger.String("key", key), logger.Error(err))
	}
}
