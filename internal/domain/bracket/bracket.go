// Package bracket builds tournament pairing trees and seed pairings.
//
// Matches are addressed by heap position: 1 is the final, positions 2i and
// 2i+1 feed position i. Leaves hold the first round.
package bracket

import (
	"sort"

	"github.com/okian/arena/internal/domain/model"
)

// Size returns the bracket size: the next power of two >= n.
func Size(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// seedOrder returns the canonical seed arrangement for a bracket of the given
// size, e.g. size 8 -> [1 8 4 5 2 7 3 6]. Consecutive pairs are first-round
// opponents; the top two seeds can only meet in the final.
func seedOrder(size int) []int {
	seeds := []int{1}
	for len(seeds) < size {
		next := make([]int, 0, len(seeds)*2)
		sum := len(seeds)*2 + 1
		for _, s := range seeds {
			next = append(next, s, sum-s)
		}
		seeds = next
	}
	return seeds
}

// Build creates the full match tree for a tournament. Participants are seeded
// by their Seed field (1 = best); seeds beyond the participant count become
// byes, which by construction fall opposite the highest seeds. A bye
// auto-advances its opponent without consuming a round.
func Build(competitionID string, participants []model.Participant, newID func() string) []*model.Match {
	sorted := make([]model.Participant, len(participants))
	copy(sorted, participants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })

	size := Size(len(sorted))
	order := seedOrder(size)

	agentAt := func(seed int) string {
		if seed > len(sorted) {
			return model.ByeSlot
		}
		return sorted[seed-1].AgentID
	}

	matches := make([]*model.Match, 0, size-1)
	// Internal positions 1..size/2-1 start undecided.
	for pos := 1; pos < size/2; pos++ {
		matches = append(matches, &model.Match{
			ID:            newID(),
			CompetitionID: competitionID,
			BracketPos:    pos,
			Status:        model.MatchPending,
		})
	}
	// Leaves hold the seeded first round.
	for i := 0; i < size/2; i++ {
		matches = append(matches, &model.Match{
			ID:            newID(),
			CompetitionID: competitionID,
			BracketPos:    size/2 + i,
			Slots:         [2]string{agentAt(order[2*i]), agentAt(order[2*i+1])},
			Status:        model.MatchPending,
		})
	}
	return matches
}

// Advance records the winner of the match at pos into its parent's slot.
// Returns the parent position, or 0 if pos was the final.
func Advance(matches map[int]*model.Match, pos int, winner string) int {
	if pos <= 1 {
		return 0
	}
	parent := matches[pos/2]
	parent.Slots[pos%2] = winner
	return pos / 2
}

// PairBySeed pairs participants for an individual competition: 1 vs 2,
// 3 vs 4, and so on. An odd participant out gets a bye slot.
func PairBySeed(competitionID string, participants []model.Participant, newID func() string) []*model.Match {
	sorted := make([]model.Participant, len(participants))
	copy(sorted, participants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })

	matches := make([]*model.Match, 0, (len(sorted)+1)/2)
	for i := 0; i < len(sorted); i += 2 {
		m := &model.Match{
			ID:            newID(),
			CompetitionID: competitionID,
			BracketPos:    i/2 + 1,
			Status:        model.MatchPending,
		}
		m.Slots[0] = sorted[i].AgentID
		if i+1 < len(sorted) {
			m.Slots[1] = sorted[i+1].AgentID
		} else {
			m.Slots[1] = model.ByeSlot
		}
		matches = append(matches, m)
	}
	return matches
}

// ByeCount returns how many byes a bracket for n participants carries.
func ByeCount(n int) int {
	return Size(n) - n
}
