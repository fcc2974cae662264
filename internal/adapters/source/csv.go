package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"

	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/pkg/metrics"
)

// CSV is a file-backed source. Each pass reopens the file so the source can
// be traversed any number of times.
type CSV struct {
	path  string
	chunk int
}

// NewCSV creates a source over the CSV file at path. The header is checked
// eagerly so a malformed file fails at construction.
func NewCSV(path string, opts ...Option) (*CSV, error) {
	s := &CSV{path: path, chunk: DefaultChunkSize}
	for _, opt := range opts {
		opt(&s.chunk)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := NewReader(f, s.chunk); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Path returns the file backing the source.
func (s *CSV) Path() string { return s.path }

// Batches yields the file in chunks of normalized events.
func (s *CSV) Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error] {
	return func(yield func([]model.ShotEvent, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(nil, fmt.Errorf("open %s: %w", s.path, err))
			return
		}
		defer f.Close()

		r, err := NewReader(f, s.chunk)
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			batch, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err == nil {
				metrics.RecordSourceScan(len(batch))
			}
			if !yield(batch, err) || err != nil {
				return
			}
		}
	}
}

// Version identifies the file contents by path, size and modification time.
func (s *CSV) Version(_ context.Context) (string, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", s.path, err)
	}
	return s.path + ":" + strconv.FormatInt(fi.Size(), 10) + ":" + strconv.FormatInt(fi.ModTime().UnixNano(), 10), nil
}
