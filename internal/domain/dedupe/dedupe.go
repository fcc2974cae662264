// Package dedupe tracks which plot keys a precompute run already scheduled.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50000

// Deduper records seen keys so each one is scheduled at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a job that could not be queued can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// NewInMemoryDeduper creates a deduper. Bounded mode evicts the least
// recently recorded key once maxSize keys are held; maxSize <= 0 never
// evicts.
func NewInMemoryDeduper(opts ...Option) Deduper {
	cfg := settings{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSize <= 0 {
		return &unbounded{seen: make(map[string]struct{})}
	}
	c, err := lru.New[string, struct{}](cfg.maxSize)
	if err != nil {
		// only reachable with a non-positive size, handled above
		panic(err)
	}
	return &bounded{seen: c}
}

type bounded struct {
	seen *lru.Cache[string, struct{}]
}

func (d *bounded) SeenAndRecord(_ context.Context, key string) bool {
	ok, _ := d.seen.ContainsOrAdd(key, struct{}{})
	return ok
}

func (d *bounded) Unrecord(_ context.Context, key string) { d.seen.Remove(key) }

func (d *bounded) Size() int64 { return int64(d.seen.Len()) }

type unbounded struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *unbounded) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *unbounded) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

func (d *unbounded) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
