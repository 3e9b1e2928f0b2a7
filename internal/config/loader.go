package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const weightSumTolerance = 1e-9

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ARENA_CONFIG is set
//  3. env (prefix ARENA_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("ARENA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ARENA_ADDR, ARENA_ROUND_COUNT, ...
	// Map env keys like ARENA_ROUND_COUNT -> round_count (flat keys).
	envProvider := env.Provider("ARENA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "arena_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.RoundCount < 1 {
		return fmt.Errorf("%w: round_count must be >= 1", ErrInvalidConfig)
	}
	if c.RoundTimeLimit <= 0 {
		return fmt.Errorf("%w: round_time_limit must be positive", ErrInvalidConfig)
	}
	if c.RewardMax <= c.RewardMin {
		return fmt.Errorf("%w: reward bounds inverted", ErrInvalidConfig)
	}
	if c.DatasetMinQuality <= 0 || c.DatasetMinQuality > 1 {
		return fmt.Errorf("%w: dataset_min_quality must be in (0,1]", ErrInvalidConfig)
	}
	if c.DatasetMinPoints < 1 {
		return fmt.Errorf("%w: dataset_min_points must be >= 1", ErrInvalidConfig)
	}

	sw := c.ScoreWeights.Correctness + c.ScoreWeights.Speed + c.ScoreWeights.Efficiency + c.ScoreWeights.Creativity
	if math.Abs(sw-1) > weightSumTolerance {
		return fmt.Errorf("%w: score weights sum to %v, want 1", ErrInvalidConfig, sw)
	}
	tw := c.TeamWeights.Coordination + c.TeamWeights.Completion + c.TeamWeights.Efficiency
	if math.Abs(tw-1) > weightSumTolerance {
		return fmt.Errorf("%w: team weights sum to %v, want 1", ErrInvalidConfig, tw)
	}
	return nil
}
