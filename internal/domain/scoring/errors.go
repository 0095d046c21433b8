package scoring

import "errors"

// Sentinel error kinds for this package. Callers match them with errors.Is.
var (
	// ErrInvalidScore marks a value outside [0,1] or NaN. Scores are never clamped.
	ErrInvalidScore = errors.New("invalid score")
	// ErrMissingMetric marks an entity with no usable metric values at all.
	ErrMissingMetric = errors.New("missing metric")
	// ErrInvalidRequest marks an analysis request that cannot be processed.
	ErrInvalidRequest = errors.New("invalid analysis request")
)
