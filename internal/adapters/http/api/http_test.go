package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/rinkxg/internal/adapters/http/api"
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/raster"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type call struct {
	playerID string
	mode     types.Mode
	strength string
}

// Mock implementations for testing
type mockDependencies struct {
	players    []types.PlayerSummary
	playersErr error
	result     types.ComparisonResult
	compareErr error
	image      types.PlotImage
	plotErr    error
	reload     types.ReloadResult
	reloadErr  error
	calls      []call
}

func (m *mockDependencies) Players(_ context.Context, strength string) ([]types.PlayerSummary, error) {
	m.calls = append(m.calls, call{strength: strength})
	return m.players, m.playersErr
}

func (m *mockDependencies) ComparePlayer(_ context.Context, id string, mode types.Mode, strength string) (types.ComparisonResult, error) {
	m.calls = append(m.calls, call{playerID: id, mode: mode, strength: strength})
	if m.compareErr != nil {
		return types.ComparisonResult{}, m.compareErr
	}
	res := m.result
	res.PlayerID, res.Mode, res.StrengthState = id, mode, strength
	return res, nil
}

func (m *mockDependencies) Plot(_ context.Context, id string, mode types.Mode, strength string) (types.PlotImage, error) {
	m.calls = append(m.calls, call{playerID: id, mode: mode, strength: strength})
	return m.image, m.plotErr
}

func (m *mockDependencies) Reload(context.Context) (types.ReloadResult, error) {
	return m.reload, m.reloadErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, api.WithLogger(logger.Nop()))
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then health serves metrics", func() {
			So(do(mux, http.MethodGet, "/healthz").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats returns the provider map", func() {
			w := do(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then health answers JSON clients with a status document", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(mux, http.MethodGet, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodPost, "/players").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/reload").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPlayersHandler(t *testing.T) {
	Convey("Given players in the source", t, func() {
		deps := &mockDependencies{players: []types.PlayerSummary{
			{PlayerID: "8478402", PlayerName: "Auston Matthews", Shots: 120},
			{PlayerID: "8471675", PlayerName: "Sidney Crosby", Shots: 3},
		}}
		mux := newMux(deps)

		Convey("When listing players for a strength state", func() {
			w := do(mux, http.MethodGet, "/players?strength=pp")

			Convey("Then the summaries are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []types.PlayerSummary
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, deps.players)
				So(deps.calls[0].strength, ShouldEqual, "pp")
			})
		})

		Convey("When the source holds nobody", func() {
			deps.players = nil
			w := do(mux, http.MethodGet, "/players")

			Convey("Then an empty array is returned", func() {
				So(w.Body.String(), ShouldEqual, "[]\n")
			})
		})

		Convey("When the source is malformed", func() {
			deps.playersErr = fmt.Errorf("row 4: %w", model.ErrMalformedSource)
			w := do(mux, http.MethodGet, "/players")

			Convey("Then a server error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["code"], ShouldEqual, "malformed_source")
			})
		})
	})
}

func TestCompareHandler(t *testing.T) {
	Convey("Given a comparison surface", t, func() {
		g := raster.NewGrid(2, 3)
		copy(g.Values, []float64{-1, 0, 1, 2, -2, 0.5})
		deps := &mockDependencies{result: types.ComparisonResult{
			Grid:          g,
			Lower:         -2,
			Upper:         2,
			DataMin:       -2,
			DataMax:       2,
			ShowScale:     true,
			PlayerSamples: 40,
		}}
		mux := newMux(deps)

		Convey("When requesting a baseline comparison", func() {
			w := do(mux, http.MethodGet, "/compare/8478402?mode=against_baseline&strength=ev")

			Convey("Then the grid is returned row by row", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					PlayerID  string      `json:"player_id"`
					Mode      string      `json:"mode"`
					Legend    string      `json:"legend"`
					Rows      int         `json:"rows"`
					Cols      int         `json:"cols"`
					Grid      [][]float64 `json:"grid"`
					Lower     float64     `json:"lower"`
					ShowScale bool        `json:"show_scale"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.PlayerID, ShouldEqual, "8478402")
				So(body.Mode, ShouldEqual, "against_baseline")
				So(body.Legend, ShouldEqual, types.ModeAgainstBaseline.Legend())
				So(body.Rows, ShouldEqual, 2)
				So(body.Cols, ShouldEqual, 3)
				So(body.Grid, ShouldResemble, [][]float64{{-1, 0, 1}, {2, -2, 0.5}})
				So(body.Lower, ShouldEqual, -2)
				So(body.ShowScale, ShouldBeTrue)
			})
		})

		Convey("When the legacy mode name is used", func() {
			w := do(mux, http.MethodGet, "/compare/8478402?mode=against_league")

			Convey("Then it resolves to the baseline mode", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.calls[0].mode, ShouldEqual, types.ModeAgainstBaseline)
			})
		})

		Convey("When the mode is unknown", func() {
			w := do(mux, http.MethodGet, "/compare/8478402?mode=sideways")

			Convey("Then it is a bad request and the service is not called", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(deps.calls, ShouldBeEmpty)
			})
		})

		Convey("When no player id is given", func() {
			w := do(mux, http.MethodGet, "/compare/")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service reports domain errors", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{model.ErrUnknownEntity, http.StatusNotFound, "unknown_entity"},
				{model.ErrInsufficientData, http.StatusUnprocessableEntity, "insufficient_data"},
				{model.ErrInterpolationDegenerate, http.StatusUnprocessableEntity, "insufficient_data"},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
			}
			for _, c := range cases {
				deps.compareErr = fmt.Errorf("player 1: %w", c.err)
				w := do(mux, http.MethodGet, "/compare/1")
				So(w.Code, ShouldEqual, c.status)
				So(decodeError(w)["code"], ShouldEqual, c.code)
			}
		})
	})
}

func TestPlotHandler(t *testing.T) {
	Convey("Given a plot image", t, func() {
		png := []byte("\x89PNG\r\n\x1a\nfake")
		deps := &mockDependencies{image: types.PlotImage{Data: png, Key: "player_shot_plots/1_ev_individual.png", Precomputed: true}}
		mux := newMux(deps)

		Convey("When fetching a precomputed plot", func() {
			w := do(mux, http.MethodGet, "/plot/1?mode=individual&strength=ev")

			Convey("Then the PNG bytes are served with their origin", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(w.Header().Get("X-Plot-Source"), ShouldEqual, "store")
				So(w.Body.Bytes(), ShouldResemble, png)
			})
		})

		Convey("When the plot is rendered live", func() {
			deps.image.Precomputed = false
			w := do(mux, http.MethodGet, "/plot/1")

			Convey("Then the origin says so", func() {
				So(w.Header().Get("X-Plot-Source"), ShouldEqual, "live")
			})
		})

		Convey("When the player is unknown", func() {
			deps.plotErr = model.ErrUnknownEntity
			w := do(mux, http.MethodGet, "/plot/404")

			Convey("Then not found is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			})
		})
	})
}

func TestReloadHandler(t *testing.T) {
	Convey("Given a reloadable source", t, func() {
		deps := &mockDependencies{reload: types.ReloadResult{SourceVersion: "abc", Rows: 12, Renormalized: true}}
		mux := newMux(deps)

		Convey("When reloading", func() {
			w := do(mux, http.MethodPost, "/reload")

			Convey("Then the new version is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.ReloadResult
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, deps.reload)
			})
		})

		Convey("When the reload fails", func() {
			deps.reloadErr = fmt.Errorf("scan: %w", model.ErrMalformedSource)

			Convey("Then a server error is returned", func() {
				So(do(mux, http.MethodPost, "/reload").Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler that panics", t, func() {
		h := api.MetricsMiddleware(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}, "test")

		Convey("When it is called", func() {
			w := httptest.NewRecorder()
			So(func() { h(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody)) }, ShouldNotPanic)

			Convey("Then a JSON 500 is written", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["code"], ShouldEqual, "internal_error")
			})
		})
	})

	Convey("Given a service that has not started", t, func() {
		server := api.NewServer(&mockDependencies{}, &mockStatsProvider{stats: map[string]interface{}{"started": false}})
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("Then JSON health reports it as unavailable", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
