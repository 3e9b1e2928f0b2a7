// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BusPartitionCapacity bounds each competition's event partition.
	BusPartitionCapacity int `koanf:"bus_partition_capacity"`

	// ShardCount configures the number of shards in the leaderboard store.
	ShardCount int `koanf:"shard_count"`

	// HistorySize bounds the per-agent rating history.
	HistorySize int `koanf:"history_size"`

	// LockStripes sets the number of per-agent rating lock stripes.
	LockStripes int `koanf:"lock_stripes"`

	// MatchDedupeSize bounds the match-id idempotency cache.
	MatchDedupeSize int `koanf:"match_dedupe_size"`

	// PointDedupeSize bounds the training-point natural-key cache.
	PointDedupeSize int `koanf:"point_dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RoundTimeLimit is the default per-round action deadline.
	RoundTimeLimit time.Duration `koanf:"round_time_limit"`

	// RoundCount and BestOf set the default match length.
	RoundCount int `koanf:"round_count"`
	BestOf     int `koanf:"best_of"`

	// ActionRetries and RetryBackoff bound transient provider failures.
	ActionRetries int           `koanf:"action_retries"`
	RetryBackoff  time.Duration `koanf:"retry_backoff"`

	// ScoreWeights combine graded round metrics; they must sum to 1.
	ScoreWeights ScoreWeights `koanf:"score_weights"`

	// TeamWeights combine team-match dimensions; they must sum to 1.
	TeamWeights TeamWeights `koanf:"team_weights"`

	// RewardMin and RewardMax bound the training reward field.
	RewardMin float64 `koanf:"reward_min"`
	RewardMax float64 `koanf:"reward_max"`

	// DatasetMinQuality and DatasetMinPoints gate training readiness.
	DatasetMinQuality float64 `koanf:"dataset_min_quality"`
	DatasetMinPoints  int     `koanf:"dataset_min_points"`

	// DatasetBuildInterval drives the periodic dataset build; 0 disables it.
	DatasetBuildInterval time.Duration `koanf:"dataset_build_interval"`

	// RateLimitRPS and RateLimitBurst shape per-client HTTP throughput;
	// RateLimitRPS <= 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// OperatorQueueSize bounds the escalation queue.
	OperatorQueueSize int `koanf:"operator_queue_size"`
}

// ScoreWeights mirrors the round scoring weights for configuration.
type ScoreWeights struct {
	Correctness float64 `koanf:"correctness"`
	Speed       float64 `koanf:"speed"`
	Efficiency  float64 `koanf:"efficiency"`
	Creativity  float64 `koanf:"creativity"`
}

// TeamWeights mirrors the team scoring weights for configuration.
type TeamWeights struct {
	Coordination float64 `koanf:"coordination"`
	Completion   float64 `koanf:"completion"`
	Efficiency   float64 `koanf:"efficiency"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		BusPartitionCapacity: 1024,
		ShardCount:           8,
		HistorySize:          256,
		LockStripes:          64,
		MatchDedupeSize:      100_000,
		PointDedupeSize:      500_000,
		MaxLeaderboardLimit:  100,
		RoundTimeLimit:       30 * time.Second,
		RoundCount:           3,
		BestOf:               3,
		ActionRetries:        3,
		RetryBackoff:         500 * time.Millisecond,
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
		RewardMin:            -1,
		RewardMax:            1,
		DatasetMinQuality:    0.90,
		DatasetMinPoints:     1000,
		DatasetBuildInterval: time.Minute,
		RateLimitRPS:         50,
		RateLimitBurst:       100,
		OperatorQueueSize:    256,
	}
}
