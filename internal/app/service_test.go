package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/rinkxg/internal/adapters/blob"
	"github.com/okian/rinkxg/internal/adapters/source"
	service "github.com/okian/rinkxg/internal/app"
	"github.com/okian/rinkxg/internal/domain/compare"
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func shot(player string, x, y, p float64) model.ShotEvent {
	return model.ShotEvent{
		PlayerID:          player,
		PlayerName:        "Player " + player,
		StrengthStateCode: "ev",
		XCoord:            x,
		YCoord:            y,
		XGProba:           p,
	}
}

// playerA is the five-shot player used throughout.
func playerA() []model.ShotEvent {
	return []model.ShotEvent{
		shot("A", 10, 5, 0.1),
		shot("A", 20, -5, 0.2),
		shot("A", -30, 10, 0.05),
		shot("A", 40, 0, 0.3),
		shot("A", 15, -15, 0.15),
	}
}

func league() []model.ShotEvent {
	events := playerA()
	events = append(events,
		shot("C", 60, 20, 0.05),
		shot("C", 70, -20, 0.08),
		shot("C", 80, 5, 0.4),
		shot("C", -75, 0, 0.3),
		shot("C", 55, -30, 0.02),
		shot("B", 30, 30, 0.1),
		shot("B", 35, -30, 0.1),
		shot("B", 50, 0, 0.1),
	)
	pp := shot("C", 85, 2, 0.5)
	pp.StrengthStateCode = "pp"
	return append(events, pp)
}

func started(events []model.ShotEvent, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithSource(source.NewMemory(events, source.WithChunkSize(4))),
		service.WithLogger(logger.Nop()),
		service.WithWorkerCount(2),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a source", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then Start fails and stats say stopped", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoSource), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("And queries report the service as not started", func() {
			_, err := svc.ComparePlayer(context.Background(), "A", types.ModeIndividual, "")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Players(context.Background(), "")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		svc := started(league())

		Convey("When it is stopped", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("Then stats describe the pipeline", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["minSamples"], ShouldEqual, 4)
			So(stats["defaultStrength"], ShouldEqual, "ev")
			So(stats["sourceVersion"], ShouldNotBeEmpty)
		})
	})
}

func TestService_ComparePlayer(t *testing.T) {
	Convey("Given a league of three players", t, func() {
		ctx := context.Background()
		svc := started(league())
		defer svc.Stop()

		Convey("When player A is compared individually", func() {
			res, err := svc.ComparePlayer(ctx, "A", types.ModeIndividual, "")
			So(err, ShouldBeNil)

			Convey("Then the surface has the default shape and is non-negative", func() {
				So(res.Grid.Rows, ShouldEqual, 85)
				So(res.Grid.Cols, ShouldEqual, 100)
				So(res.DataMin, ShouldBeGreaterThanOrEqualTo, 0)
				So(res.DataMax, ShouldBeGreaterThan, 0)
			})

			Convey("And the result is labelled", func() {
				So(res.PlayerID, ShouldEqual, "A")
				So(res.StrengthState, ShouldEqual, "ev")
				So(res.PlayerSamples, ShouldEqual, 5)
				So(res.ShowScale, ShouldBeFalse)
				So(res.Upper, ShouldEqual, -res.Lower)
			})
		})

		Convey("When player A is compared against the league", func() {
			res, err := svc.ComparePlayer(ctx, "A", types.ModeAgainstBaseline, "ev")
			So(err, ShouldBeNil)

			Convey("Then the bounds are symmetric and the scale is shown", func() {
				So(res.Upper, ShouldBeGreaterThan, 0)
				So(res.Upper, ShouldEqual, -res.Lower)
				So(res.ShowScale, ShouldBeTrue)
			})

			Convey("And the baseline is cached", func() {
				So(svc.GetStats()["cachedBaselines"], ShouldEqual, 1)
				again, err := svc.ComparePlayer(ctx, "A", types.ModeAgainstBaseline, "ev")
				So(err, ShouldBeNil)
				So(again.Grid.Values, ShouldResemble, res.Grid.Values)
			})
		})

		Convey("When a player has three rows", func() {
			_, err := svc.ComparePlayer(ctx, "B", types.ModeIndividual, "")

			Convey("Then there is not enough data", func() {
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
			})
		})

		Convey("When a player has rows only in another state", func() {
			_, err := svc.ComparePlayer(ctx, "A", types.ModeIndividual, "pp")

			Convey("Then there is not enough data rather than an unknown player", func() {
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
				So(errors.Is(err, model.ErrUnknownEntity), ShouldBeFalse)
			})
		})

		Convey("When the player appears in no event", func() {
			_, err := svc.ComparePlayer(ctx, "Z", types.ModeAgainstBaseline, "")

			Convey("Then the player is unknown", func() {
				So(errors.Is(err, model.ErrUnknownEntity), ShouldBeTrue)
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeFalse)
			})
		})

		Convey("When the mode is not supported", func() {
			_, err := svc.ComparePlayer(ctx, "A", types.Mode("sideways"), "")
			So(errors.Is(err, compare.ErrUnknownMode), ShouldBeTrue)
		})
	})

	Convey("Given a league made of a single player", t, func() {
		svc := started(playerA(), service.WithBaselineCache(false))
		defer svc.Stop()

		Convey("When the player is compared against the league", func() {
			res, err := svc.ComparePlayer(context.Background(), "A", types.ModeAgainstBaseline, "")
			So(err, ShouldBeNil)

			Convey("Then every difference is zero and the bounds collapse", func() {
				for _, v := range res.Grid.Values {
					So(v, ShouldEqual, 0)
				}
				So(res.Lower, ShouldEqual, 0)
				So(res.Upper, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Players(t *testing.T) {
	Convey("Given a league", t, func() {
		svc := started(league())
		defer svc.Stop()

		Convey("Then players are listed with counts per state", func() {
			all, err := svc.Players(context.Background(), "")
			So(err, ShouldBeNil)
			So(all, ShouldResemble, []types.PlayerSummary{
				{PlayerID: "A", PlayerName: "Player A", Shots: 5},
				{PlayerID: "B", PlayerName: "Player B", Shots: 3},
				{PlayerID: "C", PlayerName: "Player C", Shots: 6},
			})

			pp, err := svc.Players(context.Background(), "pp")
			So(err, ShouldBeNil)
			So(pp, ShouldResemble, []types.PlayerSummary{{PlayerID: "C", PlayerName: "Player C", Shots: 1}})
		})
	})
}

func TestService_PlotAndPrecompute(t *testing.T) {
	Convey("Given a service with a directory plot store", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		plots, err := blob.NewFSStore(dir)
		So(err, ShouldBeNil)
		svc := started(league(), service.WithPlotStore(plots), service.WithPlotSize(300))
		defer svc.Stop()

		Convey("When a plot is requested before precompute", func() {
			p, err := svc.Plot(ctx, "A", types.ModeIndividual, "")
			So(err, ShouldBeNil)

			Convey("Then it is rendered live", func() {
				So(p.Precomputed, ShouldBeFalse)
				So(p.Key, ShouldEqual, "player_shot_plots/A_ev_individual.png")
				So(string(p.Data[1:4]), ShouldEqual, "PNG")
			})
		})

		Convey("When precompute runs", func() {
			report, err := svc.Precompute(ctx)
			So(err, ShouldBeNil)

			Convey("Then both modes of every eligible player are stored", func() {
				So(report.RunID, ShouldNotBeEmpty)
				So(report.Players, ShouldEqual, 3)
				So(report.Skipped, ShouldEqual, 1)
				So(report.Scheduled, ShouldEqual, 4)
				So(report.Rendered, ShouldEqual, 4)
				So(report.Failed, ShouldEqual, 0)

				keys, err := plots.List(ctx, blob.DefaultPrefix)
				So(err, ShouldBeNil)
				So(keys, ShouldResemble, []string{
					"player_shot_plots/A_ev_against_league.png",
					"player_shot_plots/A_ev_individual.png",
					"player_shot_plots/C_ev_against_league.png",
					"player_shot_plots/C_ev_individual.png",
					"player_shot_plots/manifest.json",
				})
			})

			Convey("And plots are then served from the store", func() {
				p, err := svc.Plot(ctx, "C", types.ModeAgainstBaseline, "ev")
				So(err, ShouldBeNil)
				So(p.Precomputed, ShouldBeTrue)

				m, err := blob.GetManifest(ctx, plots, blob.DefaultPrefix)
				So(err, ShouldBeNil)
				So(m.RunID, ShouldEqual, report.RunID)
				So(m.SourceVersion, ShouldEqual, report.SourceVersion)
			})

			Convey("And plots built from another source version are not served", func() {
				So(blob.PutManifest(ctx, plots, blob.DefaultPrefix, blob.Manifest{SourceVersion: "older"}), ShouldBeNil)
				p, err := svc.Plot(ctx, "C", types.ModeAgainstBaseline, "ev")
				So(err, ShouldBeNil)
				So(p.Precomputed, ShouldBeFalse)
				So(string(p.Data[1:4]), ShouldEqual, "PNG")
			})

			Convey("And a second run over the same data schedules nothing", func() {
				again, err := svc.Precompute(ctx)
				So(err, ShouldBeNil)
				So(again.Scheduled, ShouldEqual, 0)
				So(again.Duplicates, ShouldEqual, 4)
				So(svc.GetStats()["lastPrecompute"], ShouldResemble, again)
			})
		})
	})

	Convey("Given a service without a plot store", t, func() {
		svc := started(league())
		defer svc.Stop()

		Convey("Then precompute is refused", func() {
			_, err := svc.Precompute(context.Background())
			So(errors.Is(err, service.ErrNoPlotStore), ShouldBeTrue)
		})
	})
}

func writeCSV(path string, events []model.ShotEvent) {
	f, err := os.Create(path)
	So(err, ShouldBeNil)
	defer f.Close()
	w := source.NewWriter(f, false)
	So(w.Write(events...), ShouldBeNil)
	So(w.Flush(), ShouldBeNil)
}

func TestService_StoreAndReload(t *testing.T) {
	Convey("Given a CSV served through a SQLite store", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		csvPath := filepath.Join(dir, "shots.csv")
		writeCSV(csvPath, playerA())
		plots, err := blob.NewFSStore(filepath.Join(dir, "plots"))
		So(err, ShouldBeNil)

		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithSourcePath(csvPath),
			service.WithStorePath(filepath.Join(dir, "shots.db")),
			service.WithChunkSize(2),
			service.WithPlotStore(plots),
			service.WithPlotSize(200),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the store was seeded on start", func() {
			So(svc.GetStats()["storedRows"], ShouldEqual, 5)
			_, err := svc.ComparePlayer(ctx, "A", types.ModeIndividual, "")
			So(err, ShouldBeNil)
			_, err = svc.ComparePlayer(ctx, "C", types.ModeIndividual, "")
			So(errors.Is(err, model.ErrUnknownEntity), ShouldBeTrue)
		})

		Convey("When the CSV changes and the service reloads", func() {
			before := svc.GetStats()["sourceVersion"]
			_, err := svc.ComparePlayer(ctx, "A", types.ModeAgainstBaseline, "")
			So(err, ShouldBeNil)

			time.Sleep(10 * time.Millisecond)
			writeCSV(csvPath, league())
			res, err := svc.Reload(ctx)
			So(err, ShouldBeNil)

			Convey("Then the new rows are served under a new version", func() {
				So(res.Renormalized, ShouldBeTrue)
				So(res.Rows, ShouldEqual, len(league()))
				So(res.SourceVersion, ShouldNotEqual, before)
				So(svc.GetStats()["cachedBaselines"], ShouldEqual, 0)

				_, err := svc.ComparePlayer(ctx, "C", types.ModeIndividual, "")
				So(err, ShouldBeNil)
			})
		})

		Convey("When plots were precomputed before a reload", func() {
			_, err := svc.Precompute(ctx)
			So(err, ShouldBeNil)
			p, err := svc.Plot(ctx, "A", types.ModeIndividual, "")
			So(err, ShouldBeNil)
			So(p.Precomputed, ShouldBeTrue)

			time.Sleep(10 * time.Millisecond)
			writeCSV(csvPath, league())
			_, err = svc.Reload(ctx)
			So(err, ShouldBeNil)

			Convey("Then the stale images are bypassed for live rendering", func() {
				p, err := svc.Plot(ctx, "A", types.ModeIndividual, "")
				So(err, ShouldBeNil)
				So(p.Precomputed, ShouldBeFalse)
			})
		})
	})
}
