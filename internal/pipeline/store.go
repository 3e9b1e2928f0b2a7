package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// PointStore is the append-only collection of training data points. Points
// are never mutated after Append; selection returns copies.
type PointStore struct {
	mu     sync.RWMutex
	points []model.TrainingDataPoint
	byKey  map[string]int
}

// NewPointStore creates an empty point store.
func NewPointStore() *PointStore {
	return &PointStore{
		byKey: make(map[string]int),
	}
}

// Append stores a point. Returns ErrDuplicatePoint if its natural key is
// already present.
func (s *PointStore) Append(_ context.Context, p model.TrainingDataPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.NaturalKey()
	if _, ok := s.byKey[key]; ok {
		return ErrDuplicatePoint
	}
	s.byKey[key] = len(s.points)
	s.points = append(s.points, p)
	return nil
}

// Get returns the point for a natural key.
func (s *PointStore) Get(_ context.Context, key string) (model.TrainingDataPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byKey[key]
	if !ok {
		return model.TrainingDataPoint{}, false
	}
	return s.points[idx], true
}

// Select returns copies of the points inside the window and competition set,
// ordered by natural key so identical inputs always come back identically.
// Zero times and an empty competition set mean unrestricted.
func (s *PointStore) Select(_ context.Context, windowStart, windowEnd time.Time, competitionIDs []string) []model.TrainingDataPoint {
	compSet := make(map[string]struct{}, len(competitionIDs))
	for _, id := range competitionIDs {
		compSet[id] = struct{}{}
	}

	s.mu.RLock()
	out := make([]model.TrainingDataPoint, 0, len(s.points))
	for _, p := range s.points {
		if !windowStart.IsZero() && p.IngestedAt.Before(windowStart) {
			continue
		}
		if !windowEnd.IsZero() && p.IngestedAt.After(windowEnd) {
			continue
		}
		if len(compSet) > 0 {
			if _, ok := compSet[p.CompetitionID]; !ok {
				continue
			}
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].NaturalKey() < out[j].NaturalKey()
	})
	return out
}

// Count returns the total number of stored points, complete or not.
func (s *PointStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
