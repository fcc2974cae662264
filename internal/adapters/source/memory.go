package source

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/okian/rinkxg/internal/domain/model"
)

// Memory serves a fixed slice of events. It is used by tests and by tools
// that synthesize data.
type Memory struct {
	events  []model.ShotEvent
	chunk   int
	version string
}

// NewMemory copies and normalizes events.
func NewMemory(events []model.ShotEvent, opts ...Option) *Memory {
	m := &Memory{
		events:  make([]model.ShotEvent, len(events)),
		chunk:   DefaultChunkSize,
		version: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(&m.chunk)
	}
	copy(m.events, events)
	for i := range m.events {
		m.events[i].Normalize()
	}
	return m
}

// Len returns the number of events held.
func (m *Memory) Len() int { return len(m.events) }

// Batches yields sub-slices of the held events. Callers must not modify them.
func (m *Memory) Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error] {
	return func(yield func([]model.ShotEvent, error) bool) {
		for start := 0; start < len(m.events); start += m.chunk {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			end := min(start+m.chunk, len(m.events))
			if !yield(m.events[start:end:end], nil) {
				return
			}
		}
	}
}

// Version is fixed for the lifetime of the source.
func (m *Memory) Version(_ context.Context) (string, error) { return m.version, nil }
