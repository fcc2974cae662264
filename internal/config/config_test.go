package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/okian/rinkxg/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ChunkSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.GridCols, convey.ShouldEqual, 100)
			convey.So(cfg.GridRows, convey.ShouldEqual, 85)
			convey.So(cfg.Sigma, convey.ShouldEqual, 3)
			convey.So(cfg.MinSamples, convey.ShouldEqual, 4)
			convey.So(cfg.DefaultStrength, convey.ShouldEqual, "ev")
			convey.So(cfg.CacheSize, convey.ShouldEqual, 32)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.PlotPrefix, convey.ShouldEqual, "player_shot_plots")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := map[string]func(*config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = "" },
			"empty source":         func(c *config.Config) { c.SourcePath = "" },
			"store without path":   func(c *config.Config) { c.UseStore, c.StorePath = true, "" },
			"zero chunk":           func(c *config.Config) { c.ChunkSize = 0 },
			"tiny grid":            func(c *config.Config) { c.GridRows = 1 },
			"negative sigma":       func(c *config.Config) { c.Sigma = -1 },
			"zero min samples":     func(c *config.Config) { c.MinSamples = 0 },
			"no default strength":  func(c *config.Config) { c.DefaultStrength = "" },
			"zero cache size":      func(c *config.Config) { c.CacheSize = 0 },
			"gcs without bucket":   func(c *config.Config) { c.PlotBackend = config.PlotBackendGCS },
			"fs without directory": func(c *config.Config) { c.PlotBackend, c.PlotDir = config.PlotBackendFS, "" },
			"unknown backend":      func(c *config.Config) { c.PlotBackend = "s3" },
		}
		for name, mutate := range cases {
			convey.Convey("When it has "+name, func() {
				mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
				})
			})
		}

		convey.Convey("When the gcs backend names a bucket", func() {
			cfg.PlotBackend, cfg.PlotBucket = config.PlotBackendGCS, "rink-plots"

			convey.Convey("Then it is valid", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
