package aggregate_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/okian/rinkxg/internal/adapters/source"
	"github.com/okian/rinkxg/internal/domain/aggregate"
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/raster"
	. "github.com/smartystreets/goconvey/convey"
)

// countingRasterizer records how often it was asked for a surface.
type countingRasterizer struct {
	calls atomic.Int32
	seen  []model.Sample
}

func (c *countingRasterizer) Rasterize(_ context.Context, s []model.Sample) (raster.Grid, error) {
	c.calls.Add(1)
	c.seen = append([]model.Sample(nil), s...)
	return raster.NewGrid(2, 2), nil
}

func shot(id, strength string, x, y, p float64) model.ShotEvent {
	return model.ShotEvent{PlayerID: id, PlayerName: "P" + id, StrengthStateCode: strength, XCoord: x, YCoord: y, XGProba: p}
}

func fixture() []model.ShotEvent {
	return []model.ShotEvent{
		shot("A", "ev", 10, 5, 0.1),
		shot("A", "ev", 20, -5, 0.2),
		shot("A", "ev", -30, 10, 0.05),
		shot("A", "ev", 40, 0, 0.3),
		shot("A", "ev", 15, -15, 0.15),
		shot("B", "ev", 50, 2, 0.2),
		shot("B", "ev", 55, -2, 0.1),
		shot("B", "ev", 60, 0, 0.3),
		shot("C", "pp", 20, 0, 0.4),
		shot("C", "pp", 25, 5, 0.4),
		shot("C", "pp", 30, -5, 0.4),
		shot("C", "pp", 35, 0, 0.4),
		shot("C", "pp", 40, 5, 0.4),
		shot("D", "ev", 30, 3, 0.2),
		shot("D", "ev", 30, 3, 0.2),
		shot("D", "ev", 30, 3, 0.2),
		shot("D", "ev", 30, 3, 0.2),
	}
}

func TestCollect(t *testing.T) {
	Convey("Given a chunked source", t, func() {
		src := source.NewMemory(fixture(), source.WithChunkSize(4))
		agg := aggregate.New(&countingRasterizer{})
		ctx := context.Background()

		Convey("When collecting the league in one strength state", func() {
			sub, err := agg.Collect(ctx, src, aggregate.Filter{StrengthState: "ev"})

			Convey("Then every matching row is kept and chunks are counted", func() {
				So(err, ShouldBeNil)
				So(sub.Matched(), ShouldEqual, 12)
				So(sub.Rows, ShouldEqual, 17)
				So(sub.Chunks, ShouldEqual, 5)
			})
		})

		Convey("When collecting one player", func() {
			sub, err := agg.Collect(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "A"})

			Convey("Then the samples are normalized and weighted by probability", func() {
				So(err, ShouldBeNil)
				So(sub.Matched(), ShouldEqual, 5)
				So(sub.PlayerRows, ShouldEqual, 5)
				So(sub.Samples[2], ShouldResemble, model.Sample{X: 30, Y: -10, Value: 0.05})
			})
		})

		Convey("When the filter is printed", func() {
			So(aggregate.Filter{StrengthState: "ev"}.String(), ShouldEqual, "league@ev")
			So(aggregate.Filter{StrengthState: "pp", PlayerID: "C"}.String(), ShouldEqual, "C@pp")
		})
	})
}

func TestGridPolicy(t *testing.T) {
	Convey("Given an aggregator with the default threshold", t, func() {
		src := source.NewMemory(fixture(), source.WithChunkSize(3))
		r := &countingRasterizer{}
		agg := aggregate.New(r)
		ctx := context.Background()

		Convey("When a player has three matching rows", func() {
			_, sub, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "B"})

			Convey("Then the request is refused before rasterizing", func() {
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
				So(sub.Matched(), ShouldEqual, 3)
				So(r.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When a player has four identical rows", func() {
			_, sub, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "D"})

			Convey("Then the threshold is met and the rasterizer decides", func() {
				So(err, ShouldBeNil)
				So(sub.Matched(), ShouldEqual, 4)
				So(r.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When a player has rows only in another strength state", func() {
			_, _, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "C"})

			Convey("Then the data is insufficient rather than unknown", func() {
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
				So(errors.Is(err, model.ErrUnknownEntity), ShouldBeFalse)
			})
		})

		Convey("When a player never appears", func() {
			_, _, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "nobody"})

			Convey("Then the entity is unknown", func() {
				So(errors.Is(err, model.ErrUnknownEntity), ShouldBeTrue)
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeFalse)
				So(r.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the threshold is raised", func() {
			strict := aggregate.New(r, aggregate.WithMinSamples(6))
			_, _, err := strict.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "A"})
			So(strict.MinSamples(), ShouldEqual, 6)
			So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("When a non-positive threshold is given", func() {
			So(aggregate.New(r, aggregate.WithMinSamples(0)).MinSamples(), ShouldEqual, aggregate.DefaultMinSamples)
		})
	})
}

func TestGridWithRealRasterizer(t *testing.T) {
	Convey("Given the production rasterizer", t, func() {
		src := source.NewMemory(fixture())
		agg := aggregate.New(raster.New())
		ctx := context.Background()

		Convey("When the same player is rasterized twice", func() {
			g1, _, err1 := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "A"})
			g2, _, err2 := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "A"})

			Convey("Then the surfaces are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(g1.Values, ShouldResemble, g2.Values)
				So(g1.Rows, ShouldEqual, 85)
				So(g1.Cols, ShouldEqual, 100)
			})
		})

		Convey("When every location coincides", func() {
			_, _, err := agg.Grid(ctx, src, aggregate.Filter{StrengthState: "ev", PlayerID: "D"})

			Convey("Then interpolation is reported degenerate", func() {
				So(errors.Is(err, model.ErrInterpolationDegenerate), ShouldBeTrue)
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeFalse)
			})
		})
	})
}

func TestGroupAndPlayers(t *testing.T) {
	Convey("Given a source with several players", t, func() {
		src := source.NewMemory(fixture(), source.WithChunkSize(5))
		agg := aggregate.New(&countingRasterizer{})
		ctx := context.Background()

		Convey("When grouping one strength state", func() {
			groups, err := agg.GroupByPlayer(ctx, src, "ev")

			Convey("Then each player holds only its own matching samples", func() {
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 3)
				So(len(groups["A"]), ShouldEqual, 5)
				So(len(groups["B"]), ShouldEqual, 3)
				So(groups["C"], ShouldBeNil)
			})
		})

		Convey("When listing players", func() {
			all, err := aggregate.Players(ctx, src, "")
			So(err, ShouldBeNil)
			pp, err := aggregate.Players(ctx, src, "pp")
			So(err, ShouldBeNil)

			Convey("Then they are ordered by id with counts", func() {
				So(len(all), ShouldEqual, 4)
				So(all[0].PlayerID, ShouldEqual, "A")
				So(all[0].PlayerName, ShouldEqual, "PA")
				So(all[0].Shots, ShouldEqual, 5)
				So(all[3].PlayerID, ShouldEqual, "D")
				So(len(pp), ShouldEqual, 1)
				So(pp[0].PlayerID, ShouldEqual, "C")
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := agg.Collect(cctx, src, aggregate.Filter{StrengthState: "ev"})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
