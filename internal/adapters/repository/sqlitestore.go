package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver
	"github.com/google/uuid"

	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/metrics"
)

const (
	defaultChunkSize             = 100_000
	defaultMetricsUpdateInterval = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS normalized_shots (
	load_id                TEXT NOT NULL DEFAULT '',
	player_name            TEXT NOT NULL DEFAULT '',
	player_id              TEXT NOT NULL,
	event_type             TEXT NOT NULL DEFAULT '',
	play_period            TEXT NOT NULL DEFAULT '',
	zone_type              TEXT NOT NULL DEFAULT '',
	zone                   TEXT NOT NULL DEFAULT '',
	xg_strength_state_code TEXT NOT NULL DEFAULT '',
	x_goal                 REAL NOT NULL DEFAULT 0,
	xg_proba               REAL NOT NULL,
	play_distance          REAL NOT NULL DEFAULT 0,
	play_angle             REAL NOT NULL DEFAULT 0,
	x_coord                REAL NOT NULL,
	y_coord                REAL NOT NULL,
	adj_x_coord            REAL NOT NULL,
	adj_y_coord            REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_normalized_shots_load_player
	ON normalized_shots (load_id, player_id, xg_strength_state_code);
CREATE TABLE IF NOT EXISTS source_loads (
	load_id        TEXT PRIMARY KEY,
	source_version TEXT NOT NULL,
	row_count      INTEGER NOT NULL,
	loaded_at      INTEGER NOT NULL
);`

// loadColumn is added to stores created before rows carried their load.
const loadColumn = `ALTER TABLE normalized_shots ADD COLUMN load_id TEXT NOT NULL DEFAULT ''`

// currentLoad selects the id of the most recent load.
const currentLoad = `SELECT load_id FROM source_loads ORDER BY rowid DESC LIMIT 1`

const shotColumns = `player_name, player_id, event_type, play_period, zone_type, zone,
	xg_strength_state_code, x_goal, xg_proba, play_distance, play_angle,
	x_coord, y_coord, adj_x_coord, adj_y_coord`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db                    *sql.DB
	chunk                 int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema. ":memory:" keeps everything in process.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:                    db,
		chunk:                 defaultChunkSize,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('normalized_shots') WHERE name = 'load_id'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if n == 0 {
		var tables int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'normalized_shots'`).Scan(&tables); err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		if tables > 0 {
			// unstamped rows cannot be pinned; drop them so the store reseeds
			for _, q := range []string{loadColumn, `DELETE FROM normalized_shots`, `DELETE FROM source_loads`} {
				if _, err := db.ExecContext(ctx, q); err != nil {
					return fmt.Errorf("migrate shots: %w", err)
				}
			}
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load copies every event of src into the store inside one transaction and
// makes it the current load. The load it replaces stays readable until the
// next Load, so a pass that started on it still completes; older loads are
// dropped.
func (s *SQLiteStore) Load(ctx context.Context, src Loadable) (LoadResult, error) {
	start := time.Now()
	version, err := src.Version(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("source version: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	switch err := tx.QueryRowContext(ctx, currentLoad).Scan(&previous); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return LoadResult{}, fmt.Errorf("read current load: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM normalized_shots WHERE load_id <> ?`, previous); err != nil {
		return LoadResult{}, fmt.Errorf("clear shots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM source_loads WHERE load_id <> ?`, previous); err != nil {
		return LoadResult{}, fmt.Errorf("clear loads: %w", err)
	}

	ins, err := tx.PrepareContext(ctx, `INSERT INTO normalized_shots (load_id, `+shotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return LoadResult{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	res := LoadResult{LoadID: uuid.NewString(), SourceVersion: version}
	for batch, err := range src.Batches(ctx) {
		if err != nil {
			return LoadResult{}, err
		}
		res.Chunks++
		for i := range batch {
			e := &batch[i]
			if _, err := ins.ExecContext(ctx, res.LoadID,
				e.PlayerName, e.PlayerID, e.EventType, e.PlayPeriod, e.ZoneType, e.Zone,
				e.StrengthStateCode, e.XGoal, e.XGProba, e.PlayDistance, e.PlayAngle,
				e.XCoord, e.YCoord, e.AdjX, e.AdjY,
			); err != nil {
				return LoadResult{}, fmt.Errorf("insert %s: %w", e.PlayerID, err)
			}
		}
		res.Rows += len(batch)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO source_loads (load_id, source_version, row_count, loaded_at) VALUES (?, ?, ?, ?)`,
		res.LoadID, res.SourceVersion, res.Rows, time.Now().UnixNano(),
	); err != nil {
		return LoadResult{}, fmt.Errorf("record load: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("commit load: %w", err)
	}

	metrics.RecordStoreLoad(float64(time.Since(start).Milliseconds()))
	metrics.UpdateStoreRows(res.Rows)
	return res, nil
}

// Batches reads the rows of the current load in insertion order using keyset
// pagination. Each chunk is fully read before it is yielded. The load is
// pinned when the pass starts, so a Load committed mid-pass does not mix
// rows of two loads; a pass that outlives two Loads fails with
// ErrLoadReplaced.
func (s *SQLiteStore) Batches(ctx context.Context) iter.Seq2[[]model.ShotEvent, error] {
	return func(yield func([]model.ShotEvent, error) bool) {
		load, err := s.Version(ctx)
		if errors.Is(err, ErrNotLoaded) {
			return
		}
		if err != nil {
			yield(nil, err)
			return
		}

		var after int64
		for {
			batch, last, err := s.page(ctx, load, after)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				if err := s.checkLoad(ctx, load); err != nil {
					yield(nil, err)
				}
				return
			}
			metrics.RecordSourceScan(len(batch))
			if !yield(batch, nil) {
				return
			}
			after = last
		}
	}
}

// checkLoad reports whether load was dropped while it was being read.
func (s *SQLiteStore) checkLoad(ctx context.Context, load string) error {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM source_loads WHERE load_id = ?`, load).Scan(&n); err != nil {
		return fmt.Errorf("check load: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLoadReplaced, load)
	}
	return nil
}

func (s *SQLiteStore) page(ctx context.Context, load string, after int64) ([]model.ShotEvent, int64, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, `+shotColumns+` FROM normalized_shots
		WHERE load_id = ? AND rowid > ? ORDER BY rowid LIMIT ?`,
		load, after, s.chunk)
	if err != nil {
		return nil, 0, fmt.Errorf("query shots: %w", err)
	}
	defer rows.Close()

	out := make([]model.ShotEvent, 0, min(s.chunk, 4096))
	last := after
	for rows.Next() {
		var e model.ShotEvent
		if err := rows.Scan(&last,
			&e.PlayerName, &e.PlayerID, &e.EventType, &e.PlayPeriod, &e.ZoneType, &e.Zone,
			&e.StrengthStateCode, &e.XGoal, &e.XGProba, &e.PlayDistance, &e.PlayAngle,
			&e.XCoord, &e.YCoord, &e.AdjX, &e.AdjY,
		); err != nil {
			return nil, 0, fmt.Errorf("scan shot: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read shots: %w", err)
	}
	return out, last, nil
}

// Version returns the id of the most recent load.
func (s *SQLiteStore) Version(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, currentLoad).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotLoaded
	}
	if err != nil {
		return "", fmt.Errorf("read version: %w", err)
	}
	return id, nil
}

// Players implements Store.Players with a single grouped query.
func (s *SQLiteStore) Players(ctx context.Context, strength string) ([]types.PlayerSummary, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	q := `SELECT player_id, MAX(player_name), COUNT(*) FROM normalized_shots
		WHERE load_id = (` + currentLoad + `)`
	var args []any
	if strength != "" {
		q += ` AND xg_strength_state_code = ?`
		args = append(args, strength)
	}
	q += ` GROUP BY player_id ORDER BY player_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var out []types.PlayerSummary
	for rows.Next() {
		var p types.PlayerSummary
		if err := rows.Scan(&p.PlayerID, &p.PlayerName, &p.Shots); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the current load.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM normalized_shots WHERE load_id = (`+currentLoad+`)`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count shots: %w", err)
	}
	return n, nil
}

// Close stops background work and closes the database.
func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.db.Close()
}

// startMetricsUpdater refreshes the row gauge until Close or ctx ends.
func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if n, err := s.Count(ctx); err == nil {
					metrics.UpdateStoreRows(n)
				}
			}
		}
	}()
}
