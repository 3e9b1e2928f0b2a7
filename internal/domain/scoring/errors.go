package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrInvalidMetricRange is fatal to the round being scored; the round is
	// marked errored and escalated, never silently clamped.
	ErrInvalidMetricRange = errors.New("metric outside [0,100]")
)
