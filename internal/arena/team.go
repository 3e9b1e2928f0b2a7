package arena

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/scoring"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// rosters splits participants into the two team rosters by alternating seed
// order, so skill spreads evenly across both sides.
func rosters(participants []model.Participant) (teamA, teamB []string) {
	sorted := make([]model.Participant, len(participants))
	copy(sorted, participants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })

	for i, p := range sorted {
		if i%2 == 0 {
			teamA = append(teamA, p.AgentID)
		} else {
			teamB = append(teamB, p.AgentID)
		}
	}
	return teamA, teamB
}

// runTeamMatch plays the single shared-task match of a team competition. Both
// rosters act every round; rounds are scored with the team weighting instead
// of the individual one.
func (e *Engine) runTeamMatch(ctx context.Context, c *competition) error {
	c.mu.Lock()
	m := c.matches[1]
	m.Status = model.MatchActive
	rules := c.comp.Rules
	teamA, teamB := rosters(c.comp.Participants)
	c.mu.Unlock()

	wins := make(map[string]int, 2)
	totals := make(map[string]float64, 2)

	for played := 0; played < rules.RoundCount; played++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		round := e.playTeamRound(ctx, c, m, teamA, teamB)
		switch round.Status {
		case model.RoundScored:
			if round.Winner != model.TieWinner {
				wins[round.Winner]++
			}
			totals[model.TeamSlotA] += round.Scores[model.TeamSlotA]
			totals[model.TeamSlotB] += round.Scores[model.TeamSlotB]
		case model.RoundErrored:
			continue
		default:
			return ctx.Err()
		}

		if rules.BestOf > 0 && (wins[model.TeamSlotA] > rules.BestOf/2 || wins[model.TeamSlotB] > rules.BestOf/2) {
			break
		}
	}

	winner := matchWinner(m, wins, totals)
	e.completeMatch(ctx, c, m, winner, totals)
	return nil
}

// playTeamRound collects one action per roster member, grades them, folds the
// individual grades into team metrics and scores both teams.
func (e *Engine) playTeamRound(ctx context.Context, c *competition, m *model.Match, teamA, teamB []string) *model.Round {
	round := e.openRound(c, m)

	c.mu.Lock()
	rules := c.comp.Rules
	competitionID := c.comp.ID
	c.mu.Unlock()

	deadline := time.Now().Add(rules.RoundTimeLimit)
	rctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	snapshot := fmt.Sprintf("%s/match/%s/round/%d", competitionID, m.ID, round.Number)

	members := make([]string, 0, len(teamA)+len(teamB))
	members = append(members, teamA...)
	members = append(members, teamB...)

	// As in playRound, results accumulate locally and land in the shared
	// round in one commit.
	actions := make(map[string]model.Action, len(members))
	graded := make(map[string]model.Metrics, len(members))
	scores := make(map[string]float64, len(members)+2)

	type result struct {
		agentID string
		action  model.Action
		ok      bool
	}
	results := make(chan result, len(members))
	for _, agentID := range members {
		go func(id string) {
			action, ok := e.requestAction(rctx, competitionID, round.Number, id, snapshot, deadline, rules)
			results <- result{agentID: id, action: action, ok: ok}
		}(agentID)
	}
	for range members {
		r := <-results
		if r.ok {
			actions[r.agentID] = r.action
		}
	}

	if ctx.Err() != nil {
		e.commitRound(c, round, actions, graded, scores, "", time.Time{}, model.RoundAborted)
		return round
	}

	for _, agentID := range members {
		action, acted := actions[agentID]
		if !acted {
			scores[agentID] = 0
			metrics.RecordRoundForfeit()
			continue
		}

		gradeStart := time.Now()
		gradedMetrics, err := e.grader.Grade(ctx, action, snapshot)
		metrics.RecordGradingLatency(float64(time.Since(gradeStart).Milliseconds()))
		if err != nil {
			e.escalate(ctx, competitionID, m.ID, round.Number, err)
			e.commitRound(c, round, actions, graded, scores, "", time.Time{}, model.RoundErrored)
			return round
		}
		graded[agentID] = gradedMetrics
	}

	scoreA, errA := teamScore(graded, teamA, rules.TeamWeights)
	scoreB, errB := teamScore(graded, teamB, rules.TeamWeights)
	if errA != nil || errB != nil {
		err := errA
		if err == nil {
			err = errB
		}
		e.escalate(ctx, competitionID, m.ID, round.Number, err)
		e.commitRound(c, round, actions, graded, scores, "", time.Time{}, model.RoundErrored)
		return round
	}

	scores[model.TeamSlotA] = scoreA
	scores[model.TeamSlotB] = scoreB
	// Members carry their team's score so downstream per-agent consumers can
	// attribute the round.
	for _, id := range teamA {
		scores[id] = scoreA
	}
	for _, id := range teamB {
		scores[id] = scoreB
	}

	winner := roundWinner([2]string{model.TeamSlotA, model.TeamSlotB}, scores)
	scoredAt := time.Now().UTC()
	e.commitRound(c, round, actions, graded, scores, winner, scoredAt, model.RoundScored)
	metrics.RecordRoundScored()

	e.bus.Publish(ctx, model.RoundScoredEvent{
		CompetitionID: competitionID,
		MatchID:       m.ID,
		RoundNumber:   round.Number,
		Actions:       actions,
		Scores:        scores,
		Winner:        winner,
		TS:            scoredAt,
	})

	e.logger.Debug(ctx, "team round scored",
		logger.String("competitionID", competitionID),
		logger.Int("round", round.Number),
		logger.Float64("teamA", scoreA),
		logger.Float64("teamB", scoreB),
	)
	return round
}

// teamScore folds member grades into the team dimensions: completion and
// efficiency are member means, coordination falls with the spread of member
// correctness. A roster with no actions scores zero outright.
func teamScore(graded map[string]model.Metrics, members []string, w model.TeamWeights) (float64, error) {
	var correctness, efficiency []float64
	acted := 0
	for _, id := range members {
		g, ok := graded[id]
		if !ok {
			correctness = append(correctness, 0)
			efficiency = append(efficiency, 0)
			continue
		}
		acted++
		correctness = append(correctness, g.Correctness)
		efficiency = append(efficiency, g.Efficiency)
	}

	if acted == 0 {
		return 0, nil
	}

	tm := scoring.TeamMetrics{
		Coordination: math.Max(0, 100-meanAbsDeviation(correctness)),
		Completion:   mean(correctness),
		Efficiency:   mean(efficiency),
	}
	return scoring.Team(tm, w)
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func meanAbsDeviation(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := mean(vs)
	dev := 0.0
	for _, v := range vs {
		dev += math.Abs(v - m)
	}
	return dev / float64(len(vs))
}
