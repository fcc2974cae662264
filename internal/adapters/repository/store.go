// Package repository keeps a normalized copy of the shot table in SQLite
// and serves it back as a chunked source.
package repository

import (
	"context"
	"iter"

	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/types"
)

// Store is a persistent, re-readable shot source.
type Store interface {
	// Load replaces the stored rows with every event of src.
	Load(ctx context.Context, src Loadable) (LoadResult, error)

	Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error]
	Version(ctx context.Context) (string, error)

	// Players lists stored players ordered by id. An empty strength counts
	// rows in every state.
	Players(ctx context.Context, strength string) ([]types.PlayerSummary, error)

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Loadable is anything that can be traversed in chunks.
type Loadable interface {
	Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error]
	Version(ctx context.Context) (string, error)
}

// LoadResult describes one completed load.
type LoadResult struct {
	LoadID        string
	SourceVersion string
	Rows          int
	Chunks        int
}
