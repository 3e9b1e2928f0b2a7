package pipeline

import "errors"

// Sentinel kinds for pipeline errors.
var (
	ErrDuplicatePoint = errors.New("duplicate training data point")
)
