// Package rating implements the Elo-style skill rating update.
package rating

import "math"

// Tier boundaries and the K-factor per tier. K is chosen from the
// pre-match rating, so the two sides of a match may move by different
// magnitudes; the update is intentionally not zero-sum across tiers.
const (
	advancedFloor = 1600
	expertFloor   = 2400

	kNovice   = 32
	kAdvanced = 24
	kExpert   = 16
)

// Outcome is the actual score of one side of a match.
type Outcome float64

// Match outcomes from one participant's perspective.
const (
	Loss Outcome = 0
	Tie  Outcome = 0.5
	Win  Outcome = 1
)

// KFactor returns the maximum rating adjustment for the given rating.
func KFactor(rating float64) float64 {
	switch {
	case rating > expertFloor:
		return kExpert
	case rating >= advancedFloor:
		return kAdvanced
	default:
		return kNovice
	}
}

// Expected returns the expected score of a rated participant against an
// opponent: 1 / (1 + 10^((Rb-Ra)/400)).
func Expected(rating, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-rating)/400))
}

// Delta computes the rating change for one side: K * (S - E), with K taken
// from the pre-match rating.
func Delta(rating, opponent float64, outcome Outcome) float64 {
	return KFactor(rating) * (float64(outcome) - Expected(rating, opponent))
}

// Update returns both new ratings after a match between a and b, where
// outcomeA is a's actual score. Each side's delta is computed independently
// from its own pre-match K.
func Update(a, b float64, outcomeA Outcome) (newA, newB float64) {
	newA = a + Delta(a, b, outcomeA)
	newB = b + Delta(b, a, 1-outcomeA)
	return newA, newB
}

// Tier maps a rating to its display tier.
func Tier(rating float64) string {
	switch {
	case rating > expertFloor:
		return "expert"
	case rating >= advancedFloor:
		return "advanced"
	default:
		return "novice"
	}
}
