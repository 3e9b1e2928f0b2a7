// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"
)

// CompetitionKind selects the pairing and scoring rules for a competition.
type CompetitionKind string

// Supported competition kinds.
const (
	KindIndividual CompetitionKind = "individual"
	KindTeam       CompetitionKind = "team"
	KindTournament CompetitionKind = "tournament"
)

// CompetitionStatus is the lifecycle state of a competition.
type CompetitionStatus string

// Competition lifecycle states.
const (
	CompetitionScheduled CompetitionStatus = "scheduled"
	CompetitionActive    CompetitionStatus = "active"
	CompetitionCompleted CompetitionStatus = "completed"
	CompetitionCancelled CompetitionStatus = "cancelled"
)

// ParticipantStatus tracks a participant within one competition.
type ParticipantStatus string

// Participant states.
const (
	ParticipantRegistered   ParticipantStatus = "registered"
	ParticipantActive       ParticipantStatus = "active"
	ParticipantCompleted    ParticipantStatus = "completed"
	ParticipantDisqualified ParticipantStatus = "disqualified"
)

// RoundStatus is the terminal-once state of a round.
type RoundStatus string

// Round states. Scored, errored, aborted and cancelled are terminal.
const (
	RoundPending   RoundStatus = "pending"
	RoundScored    RoundStatus = "scored"
	RoundErrored   RoundStatus = "errored"
	RoundAborted   RoundStatus = "aborted"
	RoundCancelled RoundStatus = "cancelled"
)

// MatchStatus is the state of one bracket match or pairing.
type MatchStatus string

// Match states.
const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// TieWinner marks a drawn round or match.
const TieWinner = "tie"

// ByeSlot marks an empty bracket slot; its opponent auto-advances.
const ByeSlot = "bye"

// Team match slots are roster identities, not agent ids. Rating updates are
// defined pairwise between agents, so the leaderboard ignores them.
const (
	TeamSlotA = "team:a"
	TeamSlotB = "team:b"
)

// Metrics are the graded per-round dimensions, each normalized to [0,100]
// by the action grader.
type Metrics struct {
	Correctness float64 `json:"correctness"`
	Speed       float64 `json:"speed"`
	Efficiency  float64 `json:"efficiency"`
	Creativity  float64 `json:"creativity"`
}

// ScoreWeights combine Metrics into a single round score.
type ScoreWeights struct {
	Correctness float64 `json:"correctness" koanf:"correctness"`
	Speed       float64 `json:"speed" koanf:"speed"`
	Efficiency  float64 `json:"efficiency" koanf:"efficiency"`
	Creativity  float64 `json:"creativity" koanf:"creativity"`
}

// TeamWeights combine team-match dimensions into a match score. Team matches
// use these instead of ScoreWeights.
type TeamWeights struct {
	Coordination float64 `json:"coordination" koanf:"coordination"`
	Completion   float64 `json:"completion" koanf:"completion"`
	Efficiency   float64 `json:"efficiency" koanf:"efficiency"`
}

// Rules is the closed, versioned per-competition configuration. Competitions
// carry a copy so later default changes never reshape finished history.
type Rules struct {
	Version         int           `json:"version"`
	RoundCount      int           `json:"round_count"`
	BestOf          int           `json:"best_of"` // 0 disables early termination
	RoundTimeLimit  time.Duration `json:"round_time_limit"`
	ScoreWeights    ScoreWeights  `json:"score_weights"`
	TeamWeights     TeamWeights   `json:"team_weights"`
	MinParticipants int           `json:"min_participants"`
	MaxParticipants int           `json:"max_participants"`
	ActionRetries   int           `json:"action_retries"`
	RetryBackoff    time.Duration `json:"retry_backoff"`
}

// DefaultRules returns the standard ruleset applied when a scheduler does not
// override anything.
func DefaultRules() Rules {
	return Rules{
		Version:        1,
		RoundCount:     3,
		BestOf:         3,
		RoundTimeLimit: 30 * time.Second,
		ScoreWeights: ScoreWeights{
			Correctness: 0.40,
			Speed:       0.30,
			Efficiency:  0.20,
			Creativity:  0.10,
		},
		TeamWeights: TeamWeights{
			Coordination: 0.30,
			Completion:   0.50,
			Efficiency:   0.20,
		},
		MinParticipants: 2,
		MaxParticipants: 64,
		ActionRetries:   3,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Competition is the root aggregate owned by the state machine while active.
type Competition struct {
	ID             string            `json:"id"`
	Kind           CompetitionKind   `json:"kind"`
	Status         CompetitionStatus `json:"status"`
	Rules          Rules             `json:"rules"`
	ScheduledStart time.Time         `json:"scheduled_start"`
	ActualStart    time.Time         `json:"actual_start,omitempty"`
	EndedAt        time.Time         `json:"ended_at,omitempty"`
	Participants   []Participant     `json:"participants"`
	// Results is the only field written after completion: winner per match,
	// keyed by match id.
	Results map[string]string `json:"results,omitempty"`
}

// Participant links an agent to a competition.
type Participant struct {
	CompetitionID string            `json:"competition_id"`
	AgentID       string            `json:"agent_id"`
	Seed          int               `json:"seed"`
	Status        ParticipantStatus `json:"status"`
}

// Action is one participant's submitted move for a round.
type Action struct {
	AgentID     string    `json:"agent_id"`
	Payload     string    `json:"payload"`
	Context     string    `json:"context"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Round records one scored exchange within a match. Immutable once its
// status is terminal.
type Round struct {
	CompetitionID string             `json:"competition_id"`
	MatchID       string             `json:"match_id"`
	Number        int                `json:"number"`
	Status        RoundStatus        `json:"status"`
	Actions       map[string]Action  `json:"actions"`
	Metrics       map[string]Metrics `json:"metrics"`
	Scores        map[string]float64 `json:"scores"`
	Winner        string             `json:"winner,omitempty"` // agent id or TieWinner
	ScoredAt      time.Time          `json:"scored_at,omitempty"`
}

// Match is one pairing in a competition. For tournaments, matches form a
// binary tree addressed by heap position: 1 is the final, 2i and 2i+1 feed i.
type Match struct {
	ID            string      `json:"id"`
	CompetitionID string      `json:"competition_id"`
	BracketPos    int         `json:"bracket_pos"`
	Slots         [2]string   `json:"slots"` // agent ids, "" = undecided, ByeSlot = bye
	RoundNumbers  []int       `json:"round_numbers"`
	Winner        string      `json:"winner,omitempty"`
	Status        MatchStatus `json:"status"`
}

// IsBye reports whether the match has an empty slot and resolves without play.
func (m *Match) IsBye() bool {
	return m.Slots[0] == ByeSlot || m.Slots[1] == ByeSlot
}

// LeaderboardEntry is an agent's standing. Mutated only by the leaderboard
// service, one completed match at a time.
type LeaderboardEntry struct {
	AgentID   string    `json:"agent_id"`
	Rating    float64   `json:"rating"`
	Tier      string    `json:"tier"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultRating is the rating assigned to unseen agents.
const DefaultRating = 1200

// TrainingDataPoint is one (round, agent) observation. Write-once, keyed by
// its natural key.
type TrainingDataPoint struct {
	CompetitionID string    `json:"competition_id" validate:"required"`
	RoundNumber   int       `json:"round_number" validate:"gte=1"`
	AgentID       string    `json:"agent_id" validate:"required"`
	Action        string    `json:"action" validate:"required"`
	Context       string    `json:"context" validate:"required"`
	Outcome       string    `json:"outcome" validate:"required,oneof=won lost tie forfeited"`
	Reward        float64   `json:"reward"`
	Checks        Checks    `json:"checks"`
	Quality       float64   `json:"quality"`
	IngestedAt    time.Time `json:"ingested_at"`
}

// NaturalKey is the domain identity used for idempotent ingestion.
func (p *TrainingDataPoint) NaturalKey() string {
	return p.CompetitionID + "/" + strconv.Itoa(p.RoundNumber) + "/" + p.AgentID
}

// Checks holds the four validation sub-scores, each in [0,1].
type Checks struct {
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Uniqueness   float64 `json:"uniqueness"`
}

// Dataset is a versioned, derived projection over training data points.
type Dataset struct {
	ID               string    `json:"id"`
	Version          int       `json:"version"`
	CompetitionIDs   []string  `json:"competition_ids"`
	PointCount       int       `json:"point_count"`
	AggregateQuality float64   `json:"aggregate_quality"`
	ReadyForTraining bool      `json:"ready_for_training"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	BuiltAt          time.Time `json:"built_at"`
}
