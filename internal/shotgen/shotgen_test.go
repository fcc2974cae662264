package shotgen_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/rinkxg/internal/adapters/http/api"
	"github.com/okian/rinkxg/internal/adapters/source"
	service "github.com/okian/rinkxg/internal/app"
	"github.com/okian/rinkxg/internal/shotgen"
	"github.com/okian/rinkxg/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := &shotgen.Config{Players: 20, ShotsPerPlayer: 20, Strengths: []string{"ev", "pp"}, Seed: 7}

		Convey("When generating twice with the same seed", func() {
			a := shotgen.Generate(cfg)
			b := shotgen.Generate(cfg)

			Convey("Then the tables are identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When generating a table", func() {
			events := shotgen.Generate(cfg)
			perPlayer := map[string]int{}
			negative := 0
			for _, e := range events {
				perPlayer[e.PlayerID+"|"+e.StrengthStateCode]++
				if e.XCoord < 0 {
					negative++
				}
				So(e.XGProba, ShouldBeBetweenOrEqual, 0, 1)
				So(e.YCoord, ShouldBeBetweenOrEqual, -42.5, 42.5)
			}

			Convey("Then both rink ends are represented", func() {
				So(negative, ShouldBeGreaterThan, len(events)/4)
				So(negative, ShouldBeLessThan, 3*len(events)/4)
			})

			Convey("Then every tenth player is below the sample threshold", func() {
				So(perPlayer["8470009|ev"], ShouldEqual, 3)
				So(perPlayer["8470019|pp"], ShouldEqual, 3)
				So(perPlayer["8470000|ev"], ShouldBeGreaterThanOrEqualTo, 10)
			})
		})
	})
}

func TestWriteFile(t *testing.T) {
	Convey("Given an output path", t, func() {
		path := filepath.Join(t.TempDir(), "shots.csv")
		cfg := &shotgen.Config{Players: 5, ShotsPerPlayer: 8, Seed: 1, OutputFile: path}

		Convey("When the table is written", func() {
			n, err := shotgen.WriteFile(context.Background(), cfg)
			So(err, ShouldBeNil)

			Convey("Then the CSV source reads every row back", func() {
				f, err := os.Open(path)
				So(err, ShouldBeNil)
				defer f.Close()
				r, err := source.NewReader(f, 0)
				So(err, ShouldBeNil)
				rows, err := r.Next()
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, n)

				want := shotgen.Generate(cfg)
				for i := range want {
					want[i].Normalize()
				}
				So(rows, ShouldResemble, want)
			})
		})
	})
}

func TestProbe(t *testing.T) {
	Convey("Given a service running on a generated table", t, func() {
		cfg := &shotgen.Config{Players: 12, ShotsPerPlayer: 12, Seed: 3, Workers: 4, Timeout: 10 * time.Second}
		svc := service.New(
			service.WithSource(source.NewMemory(shotgen.Generate(cfg))),
			service.WithLogger(logger.Nop()),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		ts := httptest.NewServer(mux)
		Reset(ts.Close)
		cfg.BaseURL = ts.URL

		Convey("When probing it", func() {
			stats, err := shotgen.Probe(context.Background(), cfg)

			Convey("Then every surface holds its invariants", func() {
				So(err, ShouldBeNil)
				So(stats.PlayersListed, ShouldEqual, 12)
				So(stats.Requests, ShouldEqual, 24)
				So(stats.InvariantFailures, ShouldEqual, 0)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.InsufficientData, ShouldEqual, 2)
				So(stats.Successful, ShouldEqual, 22)
				So(stats.PlotsFetched, ShouldEqual, 22)
			})
		})
	})
}
