package model

import "errors"

// Sentinel error kinds shared by the xG pipeline. Callers match them with
// errors.Is; producers wrap them with context.
var (
	// ErrInsufficientData means fewer than the minimum number of samples
	// matched the requested entity and strength state.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnknownEntity means the requested player has no rows at all.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrMalformedSource means the source lacks required columns or holds
	// non-numeric coordinates or probabilities.
	ErrMalformedSource = errors.New("malformed source")

	// ErrInterpolationDegenerate means the samples cannot be triangulated,
	// for example when every location is collinear.
	ErrInterpolationDegenerate = errors.New("interpolation degenerate")
)
