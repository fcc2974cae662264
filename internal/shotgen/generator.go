package shotgen

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/okian/rinkxg/internal/adapters/source"
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/pkg/logger"
)

// Shooter archetypes. Each player draws most shots around one hot spot.
var hotSpots = [][2]float64{ //nolint:gochecknoglobals // read-only table
	{80, 0},   // slot
	{84, -6},  // low right
	{84, 6},   // low left
	{60, -20}, // right point
	{60, 20},  // left point
	{70, 0},   // high slot
}

// Generate builds a deterministic shot table. Roughly half the shots are
// recorded in the defending-left frame (negative x) so normalization is
// exercised. Every tenth player gets too few shots to be rasterized.
func Generate(cfg *Config) []model.ShotEvent {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data
	strengths := cfg.Strengths
	if len(strengths) == 0 {
		strengths = []string{"ev"}
	}

	var events []model.ShotEvent
	for p := 0; p < cfg.Players; p++ {
		id := strconv.Itoa(8470000 + p)
		name := fmt.Sprintf("Skater %03d", p)
		spot := hotSpots[p%len(hotSpots)]
		for _, st := range strengths {
			n := cfg.ShotsPerPlayer/2 + rng.IntN(cfg.ShotsPerPlayer+1)
			if p%10 == 9 {
				n = 3
			}
			for i := 0; i < n; i++ {
				events = append(events, shot(rng, id, name, st, spot))
			}
		}
	}
	return events
}

func shot(rng *rand.Rand, id, name, strength string, spot [2]float64) model.ShotEvent {
	x, y := spot[0], spot[1]
	if rng.Float64() < 0.7 {
		x += rng.NormFloat64() * 6
		y += rng.NormFloat64() * 6
	} else {
		x = 25 + rng.Float64()*(goalLineX-25)
		y = (rng.Float64()*2 - 1) * rinkHalfWidth
	}
	x = math.Max(0, math.Min(x, rinkHalfLength))
	y = math.Max(-rinkHalfWidth, math.Min(y, rinkHalfWidth))

	dx, dy := goalLineX-x, y
	dist := math.Hypot(dx, dy)
	angle := math.Abs(math.Atan2(dy, dx)) * 180 / math.Pi
	proba := math.Exp(-dist/12) * math.Cos(angle*math.Pi/360)

	// Report half the shots from the other end of the rink.
	if rng.IntN(2) == 0 {
		x, y = -x, -y
	}
	goal := 0.0
	if rng.Float64() < proba {
		goal = 1
	}
	return model.ShotEvent{
		PlayerID:          id,
		PlayerName:        name,
		EventType:         "SHOT",
		PlayPeriod:        strconv.Itoa(1 + rng.IntN(3)),
		ZoneType:          "O",
		Zone:              "OZ",
		StrengthStateCode: strength,
		XGoal:             goal,
		XGProba:           round(proba, 4),
		PlayDistance:      round(dist, 2),
		PlayAngle:         round(angle, 2),
		XCoord:            round(x, 1),
		YCoord:            round(y, 1),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// WriteFile generates the table and writes it as CSV to cfg.OutputFile.
func WriteFile(ctx context.Context, cfg *Config) (int, error) {
	events := Generate(cfg)
	f, err := os.Create(cfg.OutputFile)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", cfg.OutputFile, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	w := source.NewWriter(f, false)
	if err := w.Write(events...); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", cfg.OutputFile, err)
	}
	logger.Get().Info(ctx, "shot table written",
		logger.String("file", cfg.OutputFile),
		logger.Int("players", cfg.Players),
		logger.Int("rows", len(events)),
	)
	return len(events), nil
}
