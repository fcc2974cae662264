package compare

import "errors"

// Sentinel kinds for comparison errors.
var (
	ErrUnknownMode     = errors.New("unknown comparison mode")
	ErrShapeMismatch   = errors.New("grid shape mismatch")
	ErrMissingBaseline = errors.New("baseline grid required")
)
