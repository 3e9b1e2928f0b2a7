package arena

import "errors"

// Sentinel kinds for arena errors.
var (
	ErrNotFound          = errors.New("competition not found")
	ErrUnknownKind       = errors.New("unknown competition kind")
	ErrInvalidTransition = errors.New("invalid competition transition")
	ErrParticipantCount  = errors.New("participant count out of bounds")
	ErrCompetitionFull   = errors.New("competition is full")
	ErrAlreadyRegistered = errors.New("agent already registered")
)
