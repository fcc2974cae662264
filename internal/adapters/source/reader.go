// Package source reads and writes shot event tables.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/rinkxg/internal/domain/model"
)

// DefaultChunkSize is the number of rows handed out per batch.
const DefaultChunkSize = 100_000

// Reader decodes a CSV shot table chunk by chunk. Every returned event is
// already normalized.
type Reader struct {
	csv   *csv.Reader
	index map[string]int
	chunk int
	row   int // 1-based data row of the last record read
}

// NewReader validates the header of r and prepares chunked decoding.
// Missing required columns yield model.ErrMalformedSource.
func NewReader(r io.Reader, chunkSize int) (*Reader, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", model.ErrMalformedSource)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", model.ErrMalformedSource, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", model.ErrMalformedSource, strings.Join(missing, ", "))
	}
	return &Reader{csv: cr, index: index, chunk: chunkSize}, nil
}

// Next returns up to chunkSize events. It returns io.EOF once the input is
// exhausted and no rows remain.
func (r *Reader) Next() ([]model.ShotEvent, error) {
	out := make([]model.ShotEvent, 0, min(r.chunk, 4096))
	for len(out) < r.chunk {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		r.row++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", model.ErrMalformedSource, r.row, err)
		}
		e, err := r.decode(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", model.ErrMalformedSource, r.row, err)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

func (r *Reader) field(rec []string, col string) string {
	i := r.index[col]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// required parses a numeric column that must be present and finite.
func (r *Reader) required(rec []string, col string) (float64, error) {
	s := r.field(rec, col)
	if s == "" {
		return 0, fmt.Errorf("%s is empty", col)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", col, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %q is not finite", col, s)
	}
	return v, nil
}

// optional parses a numeric pass-through column; blanks read as zero.
func (r *Reader) optional(rec []string, col string) (float64, error) {
	s := r.field(rec, col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", col, s)
	}
	return v, nil
}

func (r *Reader) decode(rec []string) (model.ShotEvent, error) {
	e := model.ShotEvent{
		PlayerID:          r.field(rec, model.ColPlayerID),
		PlayerName:        r.field(rec, model.ColPlayerName),
		EventType:         r.field(rec, model.ColEventType),
		PlayPeriod:        r.field(rec, model.ColPlayPeriod),
		ZoneType:          r.field(rec, model.ColZoneType),
		Zone:              r.field(rec, model.ColZone),
		StrengthStateCode: r.field(rec, model.ColStrengthState),
	}
	if e.PlayerID == "" {
		return e, fmt.Errorf("%s is empty", model.ColPlayerID)
	}

	var err error
	if e.XCoord, err = r.required(rec, model.ColXCoord); err != nil {
		return e, err
	}
	if e.YCoord, err = r.required(rec, model.ColYCoord); err != nil {
		return e, err
	}
	if e.XGProba, err = r.required(rec, model.ColXGProba); err != nil {
		return e, err
	}
	if e.XGoal, err = r.optional(rec, model.ColXGoal); err != nil {
		return e, err
	}
	if e.PlayDistance, err = r.optional(rec, model.ColPlayDistance); err != nil {
		return e, err
	}
	if e.PlayAngle, err = r.optional(rec, model.ColPlayAngle); err != nil {
		return e, err
	}
	e.Normalize()
	return e, nil
}
