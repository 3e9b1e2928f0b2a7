// Package repository defines the ranking store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// RatingChange is one applied rating update, kept as per-agent history.
type RatingChange struct {
	MatchID   string    `json:"match_id"`
	OldRating float64   `json:"old_rating"`
	NewRating float64   `json:"new_rating"`
	Outcome   string    `json:"outcome"` // won, lost, tie
	TS        time.Time `json:"ts"`
}

// Store provides read/write access to leaderboard state.
type Store interface {
	// Get returns the entry for an agent.
	// Returns ErrNotFound if the agent is unknown.
	Get(ctx context.Context, agentID string) (model.LeaderboardEntry, error)

	// GetOrCreate returns the entry for an agent, creating it at the
	// default rating if absent.
	GetOrCreate(ctx context.Context, agentID string) model.LeaderboardEntry

	// Put writes an entry and appends its rating change to history.
	Put(ctx context.Context, entry model.LeaderboardEntry, change RatingChange) error

	// TopN returns the top-N entries ordered by rating desc, agent id asc.
	TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error)

	// History returns the most recent rating changes for an agent,
	// newest first.
	History(ctx context.Context, agentID string, limit int) ([]RatingChange, error)

	// TierCounts returns the number of agents per tier.
	TierCounts(ctx context.Context) map[string]int

	// Count returns the number of agents tracked.
	Count(ctx context.Context) int
}
