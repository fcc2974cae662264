package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/okian/rinkxg/internal/domain/raster"
)

const (
	redisDialTimeout = 5 * time.Second
	redisKeyPrefix   = "rinkxg:"
)

// Redis stores baseline grids as JSON values with a TTL.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

type wireGrid struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: redisDialTimeout,
	})

	pctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *goredis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Get implements Remote.
func (r *Redis) Get(ctx context.Context, key string) (raster.Grid, bool, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return raster.Grid{}, false, nil
	}
	if err != nil {
		return raster.Grid{}, false, err
	}
	var w wireGrid
	if err := json.Unmarshal(raw, &w); err != nil {
		return raster.Grid{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if w.Rows <= 0 || w.Cols <= 0 || len(w.Values) != w.Rows*w.Cols {
		return raster.Grid{}, false, fmt.Errorf("decode %s: bad shape %dx%d with %d values", key, w.Rows, w.Cols, len(w.Values))
	}
	return raster.Grid{Rows: w.Rows, Cols: w.Cols, Values: w.Values}, true, nil
}

// Set implements Remote.
func (r *Redis) Set(ctx context.Context, key string, g raster.Grid) error {
	raw, err := json.Marshal(wireGrid{Rows: g.Rows, Cols: g.Cols, Values: g.Values})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err()
}

// Close releases the client.
func (r *Redis) Close() error { return r.rdb.Close() }
