package shotgen

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rinkxg/pkg/logger"
)

// Expected surface shape.
const (
	expectedRows = 85
	expectedCols = 100
)

type probeJob struct {
	playerID string
	mode     string
}

// Probe lists the players of a running service, requests both comparison
// modes for each of them concurrently and checks every surface for its shape,
// symmetric bounds and non-negative individual values.
func Probe(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")
	client := newHTTPClient(cfg.Timeout)

	log.Info(ctx, "starting probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
	)

	status, _, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("service health check failed with status: %d", status)
	}

	var players []player
	if _, err := client.GetJSON(ctx, cfg.BaseURL+"/players", &players); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	stats.PlayersListed = len(players)

	var (
		ok, insufficient, failed, broken, plots, requests int64
	)
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan probeJob, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				atomic.AddInt64(&requests, 1)
				url := fmt.Sprintf("%s/compare/%s?mode=%s", cfg.BaseURL, j.playerID, j.mode)
				var c comparison
				status, err := client.GetJSON(ctx, url, &c)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "compare failed", logger.String("url", url), logger.Error(err))
					continue
				case status == http.StatusUnprocessableEntity:
					atomic.AddInt64(&insufficient, 1)
					continue
				case status != http.StatusOK:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "compare failed", logger.String("url", url), logger.Int("status", status))
					continue
				}
				atomic.AddInt64(&ok, 1)
				if problem := check(&c); problem != "" {
					atomic.AddInt64(&broken, 1)
					log.Error(ctx, "surface invariant violated",
						logger.String("player_id", j.playerID),
						logger.String("mode", j.mode),
						logger.String("problem", problem),
					)
					continue
				}
				if status, _, err := client.Get(ctx, fmt.Sprintf("%s/plot/%s?mode=%s", cfg.BaseURL, j.playerID, j.mode)); err == nil && status == http.StatusOK {
					atomic.AddInt64(&plots, 1)
				}
				if cfg.Verbose {
					log.Info(ctx, "surface ok",
						logger.String("player_id", j.playerID),
						logger.String("mode", j.mode),
						logger.Float64("upper", c.Upper),
					)
				}
			}
		}()
	}

feed:
	for _, p := range players {
		for _, mode := range []string{"against_baseline", "individual"} {
			select {
			case <-ctx.Done():
				break feed
			case jobs <- probeJob{playerID: p.PlayerID, mode: mode}:
			}
		}
	}
	close(jobs)
	wg.Wait()

	stats.Requests = int(requests)
	stats.Successful = int(ok)
	stats.InsufficientData = int(insufficient)
	stats.Failed = int(failed)
	stats.InvariantFailures = int(broken)
	stats.PlotsFetched = int(plots)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if broken > 0 {
		return stats, fmt.Errorf("%d surfaces violated invariants", broken)
	}
	return stats, nil
}

// check returns a description of the first invariant c breaks, or "".
func check(c *comparison) string {
	if c.Rows != expectedRows || c.Cols != expectedCols || len(c.Grid) != expectedRows {
		return fmt.Sprintf("shape %dx%d", c.Rows, c.Cols)
	}
	if c.Upper != -c.Lower {
		return fmt.Sprintf("bounds [%g, %g] not symmetric", c.Lower, c.Upper)
	}
	maxAbs := 0.0
	for _, row := range c.Grid {
		if len(row) != expectedCols {
			return fmt.Sprintf("row of %d cells", len(row))
		}
		for _, v := range row {
			if c.Mode == "individual" && v < 0 {
				return fmt.Sprintf("negative individual value %g", v)
			}
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}
	if math.Abs(maxAbs-c.Upper) > 1e-9 {
		return fmt.Sprintf("upper %g differs from max |v| %g", c.Upper, maxAbs)
	}
	return ""
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Requests > 0 {
		successRate = float64(stats.Successful) / float64(stats.Requests) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersListed", stats.PlayersListed),
		logger.Int("requests", stats.Requests),
		logger.Int("successful", stats.Successful),
		logger.Int("insufficientData", stats.InsufficientData),
		logger.Int("failed", stats.Failed),
		logger.Int("invariantFailures", stats.InvariantFailures),
		logger.Int("plotsFetched", stats.PlotsFetched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond),
	)
}
