package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/rating"
)

// Default store configuration constants.
const (
	defaultShardCount   = 8
	defaultHistoryLimit = 256
)

// shard holds a slice of the agent space behind its own lock, so updates to
// different agents rarely contend.
type shard struct {
	mu      sync.RWMutex
	entries map[string]model.LeaderboardEntry
	history map[string][]RatingChange
}

// MemStore implements Store with sharded in-memory maps.
type MemStore struct {
	shards       []*shard
	shardCount   int
	historyLimit int
}

// NewMemStore creates a sharded in-memory store with configuration options.
func NewMemStore(_ context.Context, opts ...StoreOption) *MemStore {
	s := &MemStore{
		shardCount:   defaultShardCount,
		historyLimit: defaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			entries: make(map[string]model.LeaderboardEntry),
			history: make(map[string][]RatingChange),
		}
	}

	return s
}

func (s *MemStore) shardFor(agentID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(agentID))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// Get returns the entry for an agent.
func (s *MemStore) Get(_ context.Context, agentID string) (model.LeaderboardEntry, error) {
	sh := s.shardFor(agentID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	entry, ok := sh.entries[agentID]
	if !ok {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	return entry, nil
}

// GetOrCreate returns the entry for an agent, creating it at the default
// rating if absent.
func (s *MemStore) GetOrCreate(_ context.Context, agentID string) model.LeaderboardEntry {
	sh := s.shardFor(agentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry, ok := sh.entries[agentID]
	if !ok {
		entry = model.LeaderboardEntry{
			AgentID:   agentID,
			Rating:    model.DefaultRating,
			Tier:      rating.Tier(model.DefaultRating),
			UpdatedAt: time.Now().UTC(),
		}
		sh.entries[agentID] = entry
	}
	return entry
}

// Put writes an entry and appends its rating change to bounded history.
func (s *MemStore) Put(_ context.Context, entry model.LeaderboardEntry, change RatingChange) error {
	sh := s.shardFor(entry.AgentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.entries[entry.AgentID] = entry

	hist := append(sh.history[entry.AgentID], change)
	if len(hist) > s.historyLimit {
		hist = hist[len(hist)-s.historyLimit:]
	}
	sh.history[entry.AgentID] = hist
	return nil
}

// TopN returns the top-N entries ordered by rating desc, agent id asc.
func (s *MemStore) TopN(_ context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	all := make([]model.LeaderboardEntry, 0, n)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			all = append(all, e)
		}
		sh.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].AgentID < all[j].AgentID
	})

	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// History returns the most recent rating changes for an agent, newest first.
func (s *MemStore) History(_ context.Context, agentID string, limit int) ([]RatingChange, error) {
	sh := s.shardFor(agentID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	hist, ok := sh.history[agentID]
	if !ok {
		if _, exists := sh.entries[agentID]; !exists {
			return nil, ErrNotFound
		}
		return nil, nil
	}

	if limit <= 0 || limit > len(hist) {
		limit = len(hist)
	}
	out := make([]RatingChange, limit)
	for i := 0; i < limit; i++ {
		out[i] = hist[len(hist)-1-i]
	}
	return out, nil
}

// TierCounts returns the number of agents per tier.
func (s *MemStore) TierCounts(_ context.Context) map[string]int {
	counts := make(map[string]int)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			counts[e.Tier]++
		}
		sh.mu.RUnlock()
	}
	return counts
}

// Count returns the number of agents tracked.
func (s *MemStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}
