package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/okian/rinkxg/internal/domain/model"
)

// Normalized coordinate columns appended by an adjusted Writer.
const (
	ColAdjX = "adj_x_coord"
	ColAdjY = "adj_y_coord"
)

// Writer encodes shot events as CSV with the required column layout.
type Writer struct {
	csv      *csv.Writer
	adjusted bool
	started  bool
	rec      []string
}

// NewWriter creates a Writer on w. With adjusted set the normalized
// coordinates are written as two extra columns.
func NewWriter(w io.Writer, adjusted bool) *Writer {
	return &Writer{csv: csv.NewWriter(w), adjusted: adjusted}
}

func (w *Writer) header() []string {
	h := append([]string(nil), model.RequiredColumns...)
	if w.adjusted {
		h = append(h, ColAdjX, ColAdjY)
	}
	return h
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Write appends events, emitting the header first if needed.
func (w *Writer) Write(events ...model.ShotEvent) error {
	if !w.started {
		if err := w.csv.Write(w.header()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.started = true
	}
	for i := range events {
		e := &events[i]
		w.rec = append(w.rec[:0],
			e.PlayerName,
			e.PlayerID,
			e.EventType,
			e.PlayPeriod,
			e.ZoneType,
			e.Zone,
			e.StrengthStateCode,
			ftoa(e.XGoal),
			ftoa(e.XGProba),
			ftoa(e.PlayDistance),
			ftoa(e.PlayAngle),
			ftoa(e.XCoord),
			ftoa(e.YCoord),
		)
		if w.adjusted {
			w.rec = append(w.rec, ftoa(e.AdjX), ftoa(e.AdjY))
		}
		if err := w.csv.Write(w.rec); err != nil {
			return fmt.Errorf("write %s: %w", e.PlayerID, err)
		}
	}
	return nil
}

// Flush writes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	if !w.started {
		if err := w.csv.Write(w.header()); err != nil {
			return err
		}
		w.started = true
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Batcher is the chunked traversal shared by every source.
type Batcher interface {
	Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error]
}

// WriteNormalized copies every event of src to w with the adjusted columns.
// It returns the number of rows written.
func WriteNormalized(ctx context.Context, src Batcher, w io.Writer) (int, error) {
	cw := NewWriter(w, true)
	n := 0
	for batch, err := range src.Batches(ctx) {
		if err != nil {
			return n, err
		}
		if err := cw.Write(batch...); err != nil {
			return n, err
		}
		n += len(batch)
	}
	return n, cw.Flush()
}
