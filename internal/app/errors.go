package service

import (
	"context"
	"errors"

	"github.com/okian/rinkxg/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrNoSource          = errors.New("no shot source configured")
	ErrNoPlotStore       = errors.New("no plot store configured")
	ErrPrecomputeRunning = errors.New("precompute already running")
)

// outcome is the metric label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrUnknownEntity):
		return "unknown_entity"
	case errors.Is(err, model.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, model.ErrInterpolationDegenerate):
		return "degenerate"
	case errors.Is(err, model.ErrMalformedSource):
		return "malformed_source"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
