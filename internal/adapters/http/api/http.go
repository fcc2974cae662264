// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/rinkxg/internal/domain/compare"
	"github.com/okian/rinkxg/internal/domain/model"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/logger"
	"github.com/okian/rinkxg/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CompareDependencies
	PlayersDependencies
	PlotDependencies
	ReloadDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	playersHandler *PlayersHandler
	compareHandler *CompareHandler
	plotHandler    *PlotHandler
	reloadHandler  *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := settings{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	errs := errorWriter{logger: cfg.logger}
	return &Server{
		healthHandler:  NewHealthHandler(statsProvider),
		statsHandler:   NewStatsHandler(statsProvider),
		playersHandler: &PlayersHandler{deps: deps, errs: errs},
		compareHandler: &CompareHandler{deps: deps, errs: errs},
		plotHandler:    &PlotHandler{deps: deps, errs: errs},
		reloadHandler:  &ReloadHandler{deps: deps, errs: errs},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/players", MetricsMiddleware(s.playersHandler.HandleGetPlayers, "players"))
	mux.HandleFunc("/compare/", MetricsMiddleware(s.compareHandler.HandleGetCompare, "compare"))
	mux.HandleFunc("/plot/", MetricsMiddleware(s.plotHandler.HandleGetPlot, "plot"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandlePostReload, "reload"))
}

// Option configures NewServer.
type Option func(*settings)

type settings struct {
	logger logger.Logger
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrUnknownEntity):
		return http.StatusNotFound, "unknown_entity"
	case errors.Is(err, model.ErrInsufficientData), errors.Is(err, model.ErrInterpolationDegenerate):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, model.ErrMalformedSource):
		return http.StatusInternalServerError, "malformed_source"
	case errors.Is(err, ErrBadRequest), errors.Is(err, compare.ErrUnknownMode):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type errorWriter struct {
	logger logger.Logger
}

// write classifies err, logs it and writes the error body.
func (e errorWriter) write(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	switch {
	case errors.Is(err, model.ErrInterpolationDegenerate):
		metrics.RecordErrorByComponent("api", "degenerate")
		e.logger.Warn(ctx, "degenerate interpolation", logger.String("op", op), logger.Error(err))
	case status >= http.StatusInternalServerError:
		e.logger.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// query reads the mode and strength parameters shared by compare and plot.
func query(r *http.Request) (types.Mode, string, error) {
	q := r.URL.Query()
	mode, err := compare.ParseMode(q.Get("mode"))
	if err != nil {
		return "", "", errors.Join(ErrBadRequest, err)
	}
	return mode, q.Get("strength"), nil
}
