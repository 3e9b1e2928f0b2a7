package model

import (
	"strconv"
	"time"
)

// EventType discriminates bus payloads.
type EventType string

// Event types emitted by the competition engine.
const (
	EventRoundScored          EventType = "round_scored"
	EventMatchCompleted       EventType = "match_completed"
	EventCompetitionCompleted EventType = "competition_completed"
)

// Event is the contract for anything published on the bus. Events for one
// competition are delivered in order; the competition id is the partition key.
type Event interface {
	EventType() EventType
	PartitionKey() string
	DedupeKey() string
	OccurredAt() time.Time
}

// RoundScoredEvent is emitted once per scored round, carrying everything the
// ingestion pipeline needs so data collection is not gated on match completion.
type RoundScoredEvent struct {
	CompetitionID string             `json:"competition_id"`
	MatchID       string             `json:"match_id"`
	RoundNumber   int                `json:"round_number"`
	Actions       map[string]Action  `json:"actions"`
	Scores        map[string]float64 `json:"scores"`
	Winner        string             `json:"winner"`
	TS            time.Time          `json:"ts"`
}

func (e RoundScoredEvent) EventType() EventType  { return EventRoundScored }
func (e RoundScoredEvent) PartitionKey() string  { return e.CompetitionID }
func (e RoundScoredEvent) OccurredAt() time.Time { return e.TS }
func (e RoundScoredEvent) DedupeKey() string {
	return string(EventRoundScored) + "/" + e.MatchID + "/" + strconv.Itoa(e.RoundNumber)
}

// MatchCompletedEvent is emitted exactly once per match with a recorded
// winner. The leaderboard dedupes on the match id.
type MatchCompletedEvent struct {
	CompetitionID string             `json:"competition_id"`
	MatchID       string             `json:"match_id"`
	Participants  [2]string          `json:"participants"`
	Scores        map[string]float64 `json:"scores"`
	Winner        string             `json:"winner"` // agent id or TieWinner
	TS            time.Time          `json:"ts"`
}

func (e MatchCompletedEvent) EventType() EventType  { return EventMatchCompleted }
func (e MatchCompletedEvent) PartitionKey() string  { return e.CompetitionID }
func (e MatchCompletedEvent) OccurredAt() time.Time { return e.TS }
func (e MatchCompletedEvent) DedupeKey() string {
	return string(EventMatchCompleted) + "/" + e.MatchID
}

// CompetitionCompletedEvent closes a competition's event stream. It follows
// the last MatchCompletedEvent of that competition.
type CompetitionCompletedEvent struct {
	CompetitionID string            `json:"competition_id"`
	Results       map[string]string `json:"results"` // match id -> winner
	TS            time.Time         `json:"ts"`
}

func (e CompetitionCompletedEvent) EventType() EventType  { return EventCompetitionCompleted }
func (e CompetitionCompletedEvent) PartitionKey() string  { return e.CompetitionID }
func (e CompetitionCompletedEvent) OccurredAt() time.Time { return e.TS }
func (e CompetitionCompletedEvent) DedupeKey() string {
	return string(EventCompetitionCompleted) + "/" + e.CompetitionID
}
