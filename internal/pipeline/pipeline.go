// Package pipeline turns per-round telemetry into quality-assessed training
// data points.
//
// The pipeline subscribes to RoundScored events rather than match
// completion, so data collection never waits for a match to finish. Every
// candidate point is validated on four axes (completeness, consistency,
// validity, uniqueness); the quality score is their unweighted mean.
// Incomplete points are retained for audit but excluded from aggregates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default pipeline configuration constants.
const (
	defaultRewardMin  = -1.0
	defaultRewardMax  = 1.0
	defaultDedupeSize = 500000
)

// Pipeline validates and stores training data points.
type Pipeline struct {
	store     *PointStore
	deduper   dedupe.Deduper
	validate  *validator.Validate
	rewardMin float64
	rewardMax float64
	logger    logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithRewardBounds sets the domain bounds for the reward field.
func WithRewardBounds(minReward, maxReward float64) Option {
	return func(p *Pipeline) {
		if maxReward > minReward {
			p.rewardMin = minReward
			p.rewardMax = maxReward
		}
	}
}

// WithDeduper injects a shared deduper instead of an internal one.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.deduper = d
		}
	}
}

// New creates a pipeline writing into store.
func New(store *PointStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		validate:  validator.New(),
		rewardMin: defaultRewardMin,
		rewardMax: defaultRewardMax,
		logger:    logger.Get().Named("pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.deduper == nil {
		p.deduper = dedupe.New(dedupe.WithMaxSize(defaultDedupeSize))
	}

	return p
}

// HandleEvent is the bus subscription entry point. Each RoundScored event
// yields one candidate point per participating agent.
func (p *Pipeline) HandleEvent(ctx context.Context, ev model.Event) error {
	rs, ok := ev.(model.RoundScoredEvent)
	if !ok {
		return nil
	}

	for agentID, action := range rs.Actions {
		point := model.TrainingDataPoint{
			CompetitionID: rs.CompetitionID,
			RoundNumber:   rs.RoundNumber,
			AgentID:       agentID,
			Action:        action.Payload,
			Context:       action.Context,
			Outcome:       outcomeFor(agentID, rs),
			Reward:        rewardFor(agentID, rs),
			IngestedAt:    rs.TS,
		}
		if _, err := p.Ingest(ctx, point); err != nil {
			return fmt.Errorf("ingest point %s: %w", point.NaturalKey(), err)
		}
	}

	// Agents that never acted still produced an observation: the forfeit.
	for agentID := range rs.Scores {
		if _, acted := rs.Actions[agentID]; acted {
			continue
		}
		point := model.TrainingDataPoint{
			CompetitionID: rs.CompetitionID,
			RoundNumber:   rs.RoundNumber,
			AgentID:       agentID,
			Outcome:       "forfeited",
			Reward:        p.rewardMin,
			IngestedAt:    rs.TS,
		}
		if _, err := p.Ingest(ctx, point); err != nil {
			return fmt.Errorf("ingest forfeit point %s: %w", point.NaturalKey(), err)
		}
	}

	return nil
}

// Ingest validates and stores one candidate point. Re-ingesting a natural
// key that is already stored is a no-op and returns the stored point.
func (p *Pipeline) Ingest(ctx context.Context, point model.TrainingDataPoint) (model.TrainingDataPoint, error) {
	key := point.NaturalKey()

	if p.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordPointDuplicate()
		if stored, ok := p.store.Get(ctx, key); ok {
			return stored, nil
		}
		// Seen but never stored means a prior attempt failed mid-flight;
		// fall through and store now.
	}

	point.Checks = p.runChecks(ctx, point)
	point.Quality = (point.Checks.Completeness +
		point.Checks.Consistency +
		point.Checks.Validity +
		point.Checks.Uniqueness) / 4

	if point.IngestedAt.IsZero() {
		point.IngestedAt = time.Now().UTC()
	}

	if err := p.store.Append(ctx, point); err != nil {
		if errors.Is(err, ErrDuplicatePoint) {
			metrics.RecordPointDuplicate()
			stored, _ := p.store.Get(ctx, key)
			return stored, nil
		}
		p.deduper.Unrecord(ctx, key)
		return model.TrainingDataPoint{}, fmt.Errorf("append point: %w", err)
	}

	metrics.RecordPointIngested()
	if point.Checks.Completeness < 1 {
		metrics.RecordPointRejected("completeness")
	}
	if point.Checks.Consistency < 1 {
		metrics.RecordPointRejected("consistency")
	}
	if point.Checks.Validity < 1 {
		metrics.RecordPointRejected("validity")
	}

	p.logger.Debug(ctx, "point ingested",
		logger.String("key", key),
		logger.Float64("quality", point.Quality),
	)
	return point, nil
}

// runChecks computes the four validation sub-scores.
func (p *Pipeline) runChecks(ctx context.Context, point model.TrainingDataPoint) model.Checks {
	checks := model.Checks{
		Completeness: 1,
		Consistency:  1,
		Validity:     1,
		Uniqueness:   1, // the caller already deduped on the natural key
	}

	if err := p.validate.StructCtx(ctx, point); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				// Missing fields are a completeness failure; every other
				// violated tag is a schema-consistency failure.
				if fe.Tag() == "required" {
					checks.Completeness = 0
				} else {
					checks.Consistency = 0
				}
			}
		} else {
			checks.Consistency = 0
		}
	}

	if point.Reward < p.rewardMin || point.Reward > p.rewardMax {
		checks.Validity = 0
	}

	return checks
}

// Points exposes the underlying store for the dataset builder.
func (p *Pipeline) Points() *PointStore {
	return p.store
}

// Size returns the number of tracked natural keys.
func (p *Pipeline) Size() int64 {
	return p.deduper.Size()
}

func outcomeFor(agentID string, rs model.RoundScoredEvent) string {
	switch rs.Winner {
	case agentID:
		return "won"
	case model.TieWinner:
		return "tie"
	case model.TeamSlotA, model.TeamSlotB:
		// Team rounds carry the winning roster's score on every member.
		if rs.Scores[agentID] == rs.Scores[rs.Winner] {
			return "won"
		}
		return "lost"
	default:
		return "lost"
	}
}

// rewardFor maps a round score in [0,100] onto the reward range [-1,1],
// shifted toward the extremes by win or loss.
func rewardFor(agentID string, rs model.RoundScoredEvent) float64 {
	score := rs.Scores[agentID]
	reward := score/50 - 1 // [0,100] -> [-1,1]
	switch outcomeFor(agentID, rs) {
	case "won":
		if reward < 0 {
			reward = 0
		}
	case "tie":
	default:
		if reward > 0 {
			reward = 0
		}
	}
	return reward
}
