package agent

import "errors"

// Sentinel kinds for collaborator errors.
var (
	// ErrActionTimeout means the agent did not answer by the round deadline.
	// The round is forfeited for that participant, not failed.
	ErrActionTimeout = errors.New("action deadline exceeded")

	// ErrProviderUnavailable is an infrastructure fault; the engine retries
	// with backoff up to the configured bound.
	ErrProviderUnavailable = errors.New("action provider unavailable")
)
