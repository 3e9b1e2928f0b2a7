// Package leaderboard applies match results to skill ratings and serves
// ranked views.
package leaderboard

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/rating"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultLockStripes = 64
	defaultDedupeSize  = 100000
)

// Service consumes MatchCompleted events and owns all LeaderboardEntry
// mutation. Updates for the same agent serialize through striped locks;
// updates for unrelated agents run in parallel.
type Service struct {
	store   repository.Store
	deduper dedupe.Deduper
	stripes []sync.Mutex
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*options)

type options struct {
	stripeCount int
	dedupeSize  int
	deduper     dedupe.Deduper
}

// WithLockStripes sets the number of per-agent lock stripes.
func WithLockStripes(count int) Option {
	return func(o *options) {
		if count > 0 {
			o.stripeCount = count
		}
	}
}

// WithDedupeSize bounds the match-id idempotency cache.
func WithDedupeSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.dedupeSize = size
		}
	}
}

// WithDeduper injects a shared deduper instead of an internal one.
func WithDeduper(d dedupe.Deduper) Option {
	return func(o *options) {
		if d != nil {
			o.deduper = d
		}
	}
}

// New creates a leaderboard service backed by the given store.
func New(store repository.Store, opts ...Option) *Service {
	o := &options{
		stripeCount: defaultLockStripes,
		dedupeSize:  defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	d := o.deduper
	if d == nil {
		d = dedupe.New(dedupe.WithMaxSize(o.dedupeSize))
	}

	return &Service{
		store:   store,
		deduper: d,
		stripes: make([]sync.Mutex, o.stripeCount),
		logger:  logger.Get().Named("leaderboard"),
	}
}

// HandleEvent is the bus subscription entry point. Only MatchCompleted
// events mutate ratings; everything else passes through.
func (s *Service) HandleEvent(ctx context.Context, ev model.Event) error {
	mc, ok := ev.(model.MatchCompletedEvent)
	if !ok {
		return nil
	}
	return s.applyMatch(ctx, mc)
}

// applyMatch applies one completed match to both participants' ratings.
// Redelivery of the same match id is a no-op.
func (s *Service) applyMatch(ctx context.Context, ev model.MatchCompletedEvent) error {
	a, b := ev.Participants[0], ev.Participants[1]
	if a == model.ByeSlot || b == model.ByeSlot {
		// A bye is not a played match; no rating moves.
		return nil
	}
	if a == model.TeamSlotA || b == model.TeamSlotA {
		// Team rosters have no pairwise rating; standings come from Results.
		return nil
	}

	if s.deduper.SeenAndRecord(ctx, ev.DedupeKey()) {
		metrics.RecordDuplicateMatch()
		s.logger.Debug(ctx, "duplicate match event, skipping",
			logger.String("matchID", ev.MatchID),
		)
		return nil
	}

	s.lockPair(a, b)
	defer s.unlockPair(a, b)

	entryA := s.store.GetOrCreate(ctx, a)
	entryB := s.store.GetOrCreate(ctx, b)

	outcomeA := outcomeFor(a, ev.Winner)
	newA, newB := rating.Update(entryA.Rating, entryB.Rating, outcomeA)

	now := ev.TS
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if err := s.put(ctx, entryA, newA, outcomeA, ev.MatchID, now); err != nil {
		s.deduper.Unrecord(ctx, ev.DedupeKey())
		return fmt.Errorf("apply rating for %s: %w", a, err)
	}
	if err := s.put(ctx, entryB, newB, 1-outcomeA, ev.MatchID, now); err != nil {
		s.deduper.Unrecord(ctx, ev.DedupeKey())
		return fmt.Errorf("apply rating for %s: %w", b, err)
	}

	metrics.UpdateTrackedAgents(s.store.Count(ctx))

	s.logger.Debug(ctx, "ratings applied",
		logger.String("matchID", ev.MatchID),
		logger.String("winner", ev.Winner),
		logger.Float64("ratingA", newA),
		logger.Float64("ratingB", newB),
	)
	return nil
}

func (s *Service) put(ctx context.Context, entry model.LeaderboardEntry, newRating float64, outcome rating.Outcome, matchID string, ts time.Time) error {
	change := repository.RatingChange{
		MatchID:   matchID,
		OldRating: entry.Rating,
		NewRating: newRating,
		Outcome:   outcomeLabel(outcome),
		TS:        ts,
	}

	switch outcome {
	case rating.Win:
		entry.Wins++
	case rating.Loss:
		entry.Losses++
	case rating.Tie:
		entry.Draws++
	}
	entry.Rating = newRating
	entry.Tier = rating.Tier(newRating)
	entry.UpdatedAt = ts

	if err := s.store.Put(ctx, entry, change); err != nil {
		return err
	}
	metrics.RecordRatingUpdate()
	return nil
}

// lockPair acquires both agents' stripes in a stable order so concurrent
// matches sharing an agent serialize without deadlocking.
func (s *Service) lockPair(a, b string) {
	i, j := s.stripeFor(a), s.stripeFor(b)
	if i > j {
		i, j = j, i
	}
	s.stripes[i].Lock()
	if j != i {
		s.stripes[j].Lock()
	}
}

func (s *Service) unlockPair(a, b string) {
	i, j := s.stripeFor(a), s.stripeFor(b)
	if i > j {
		i, j = j, i
	}
	if j != i {
		s.stripes[j].Unlock()
	}
	s.stripes[i].Unlock()
}

func (s *Service) stripeFor(agentID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(agentID))
	return int(h.Sum32()) % len(s.stripes)
}

func outcomeFor(agentID, winner string) rating.Outcome {
	switch winner {
	case agentID:
		return rating.Win
	case model.TieWinner:
		return rating.Tie
	default:
		return rating.Loss
	}
}

func outcomeLabel(o rating.Outcome) string {
	switch o {
	case rating.Win:
		return "won"
	case rating.Tie:
		return "tie"
	default:
		return "lost"
	}
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	return s.store.TopN(ctx, n)
}

// History returns the recent rating changes for an agent, newest first.
func (s *Service) History(ctx context.Context, agentID string, limit int) ([]repository.RatingChange, error) {
	return s.store.History(ctx, agentID, limit)
}

// TierDistribution returns the number of agents per tier.
func (s *Service) TierDistribution(ctx context.Context) map[string]int {
	return s.store.TierCounts(ctx)
}

// Count returns the number of tracked agents.
func (s *Service) Count(ctx context.Context) int {
	return s.store.Count(ctx)
}
