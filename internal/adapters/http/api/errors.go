package api

import "errors"

// Sentinel kinds for request validation errors.
var (
	ErrBadLimit       = errors.New("limit must be a positive integer within bounds")
	ErrMissingAgentID = errors.New("missing agent id")
)
