package arena

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/arena/internal/adapters/agent"
	"github.com/okian/arena/internal/domain/bracket"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/scoring"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// run drives one competition from active to a terminal state. It is the only
// writer of the competition's matches and rounds while active.
func (e *Engine) run(ctx context.Context, c *competition) {
	defer e.wg.Done()
	defer close(c.done)

	c.mu.Lock()
	kind := c.comp.Kind
	competitionID := c.comp.ID
	c.mu.Unlock()

	var err error
	switch kind {
	case model.KindTournament:
		err = e.runBracket(ctx, c)
	case model.KindIndividual:
		err = e.runPairings(ctx, c)
	case model.KindTeam:
		err = e.runTeamMatch(ctx, c)
	}

	if err != nil {
		e.finalizeCancelled(ctx, c)
		return
	}
	e.finalizeCompleted(ctx, c)

	e.logger.Info(ctx, "competition completed",
		logger.String("competitionID", competitionID),
	)
}

// runBracket plays the tournament tree bottom-up: all leaves first, then each
// level of winners until the final at position 1.
func (e *Engine) runBracket(ctx context.Context, c *competition) error {
	c.mu.Lock()
	positions := make([]int, 0, len(c.matches))
	for pos := range c.matches {
		positions = append(positions, pos)
	}
	c.mu.Unlock()
	// Higher positions are deeper in the tree and play first.
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	for _, pos := range positions {
		c.mu.Lock()
		m := c.matches[pos]
		c.mu.Unlock()

		winner, err := e.playMatch(ctx, c, m)
		if err != nil {
			return err
		}

		c.mu.Lock()
		bracket.Advance(c.matches, pos, winner)
		c.mu.Unlock()
	}
	return nil
}

// runPairings plays each seed pairing of an individual competition in order.
func (e *Engine) runPairings(ctx context.Context, c *competition) error {
	c.mu.Lock()
	positions := make([]int, 0, len(c.matches))
	for pos := range c.matches {
		positions = append(positions, pos)
	}
	c.mu.Unlock()
	sort.Ints(positions)

	for _, pos := range positions {
		c.mu.Lock()
		m := c.matches[pos]
		c.mu.Unlock()

		if _, err := e.playMatch(ctx, c, m); err != nil {
			return err
		}
	}
	return nil
}

// playMatch plays one match to completion and returns the winner. A bye
// resolves immediately without consuming rounds. Best-of rules end the match
// as soon as one side holds an unbeatable majority of round wins.
func (e *Engine) playMatch(ctx context.Context, c *competition, m *model.Match) (string, error) {
	if m.IsBye() {
		winner := m.Slots[0]
		if winner == model.ByeSlot {
			winner = m.Slots[1]
		}
		e.completeMatch(ctx, c, m, winner, nil)
		return winner, nil
	}

	c.mu.Lock()
	m.Status = model.MatchActive
	rules := c.comp.Rules
	c.mu.Unlock()

	wins := make(map[string]int, 2)
	totals := make(map[string]float64, 2)

	for played := 0; played < rules.RoundCount; played++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		round := e.playRound(ctx, c, m)
		switch round.Status {
		case model.RoundScored:
			if round.Winner != model.TieWinner {
				wins[round.Winner]++
			}
			for id, s := range round.Scores {
				totals[id] += s
			}
		case model.RoundErrored:
			// Fatal to the round only; the match plays on.
			continue
		default: // aborted
			return "", ctx.Err()
		}

		if rules.BestOf > 0 && (wins[m.Slots[0]] > rules.BestOf/2 || wins[m.Slots[1]] > rules.BestOf/2) {
			break
		}
	}

	winner := matchWinner(m, wins, totals)
	e.completeMatch(ctx, c, m, winner, totals)
	return winner, nil
}

// matchWinner decides the match from round wins, breaking ties on total
// score, then on slot order so a bracket always has someone to advance.
func matchWinner(m *model.Match, wins map[string]int, totals map[string]float64) string {
	a, b := m.Slots[0], m.Slots[1]
	switch {
	case wins[a] > wins[b]:
		return a
	case wins[b] > wins[a]:
		return b
	case totals[a] > totals[b]:
		return a
	case totals[b] > totals[a]:
		return b
	default:
		return a
	}
}

// completeMatch records the winner and publishes the MatchCompleted event.
func (e *Engine) completeMatch(ctx context.Context, c *competition, m *model.Match, winner string, totals map[string]float64) {
	c.mu.Lock()
	m.Winner = winner
	m.Status = model.MatchCompleted
	if c.comp.Results == nil {
		c.comp.Results = make(map[string]string)
	}
	c.comp.Results[m.ID] = winner
	competitionID := c.comp.ID
	c.mu.Unlock()

	metrics.RecordMatchCompleted()

	e.bus.Publish(ctx, model.MatchCompletedEvent{
		CompetitionID: competitionID,
		MatchID:       m.ID,
		Participants:  m.Slots,
		Scores:        totals,
		Winner:        winner,
		TS:            time.Now().UTC(),
	})
}

// playRound runs one scored exchange: request both actions in parallel under
// the round deadline, grade what arrived, score, and publish. An agent that
// misses the deadline forfeits the round with a zero score; a grading fault
// marks the round errored and escalates to an operator.
func (e *Engine) playRound(ctx context.Context, c *competition, m *model.Match) *model.Round {
	round := e.openRound(c, m)

	c.mu.Lock()
	rules := c.comp.Rules
	competitionID := c.comp.ID
	c.mu.Unlock()

	deadline := time.Now().Add(rules.RoundTimeLimit)
	rctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	snapshot := fmt.Sprintf("%s/match/%s/round/%d", competitionID, m.ID, round.Number)

	// Results accumulate in round-local maps and land in the shared round in
	// one commit, so snapshot readers never see a half-written round.
	actions := make(map[string]model.Action, 2)
	graded := make(map[string]model.Metrics, 2)
	scores := make(map[string]float64, 2)

	type result struct {
		agentID string
		action  model.Action
		ok      bool
	}
	results := make(chan result, 2)
	for _, agentID := range m.Slots {
		go func(id string) {
			action, ok := e.requestAction(rctx, competitionID, round.Number, id, snapshot, deadline, rules)
			results <- result{agentID: id, action: action, ok: ok}
		}(agentID)
	}
	for i := 0; i < 2; i++ {
		r := <-results
		if r.ok {
			actions[r.agentID] = r.action
		}
	}

	if ctx.Err() != nil {
		e.commitRound(c, round, actions, graded, scores, "", time.Time{}, model.RoundAborted)
		return round
	}

	for _, agentID := range m.Slots {
		action, acted := actions[agentID]
		if !acted {
			scores[agentID] = 0
			metrics.RecordRoundForfeit()
			e.logger.Warn(ctx, "round forfeited",
				logger.String("competitionID", competitionID),
				logger.String("agentID", agentID),
				logger.Int("round", round.Number),
			)
			continue
		}

		gradeStart := time.Now()
		gradedMetrics, err := e.grader.Grade(ctx, action, snapshot)
		metrics.RecordGradingLatency(float64(time.Since(gradeStart).Milliseconds()))
		if err == nil {
			graded[agentID] = gradedMetrics
			scores[agentID], err = scoring.Round(gradedMetrics, rules.ScoreWeights)
		}
		if err != nil {
			e.escalate(ctx, competitionID, m.ID, round.Number, err)
			e.commitRound(c, round, actions, graded, scores, "", time.Time{}, model.RoundErrored)
			return round
		}
	}

	winner := roundWinner(m.Slots, scores)
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
	return round
}

// roundWinner picks the higher score; equal scores draw.
func roundWinner(slots [2]string, scores map[string]float64) string {
	a, b := slots[0], slots[1]
	switch {
	case scores[a] > scores[b]:
		return a
	case scores[b] > scores[a]:
		return b
	default:
		return model.TieWinner
	}
}

// requestAction asks the provider for one action, retrying transient provider
// failures with linear backoff. Deadline misses are forfeits, never retried.
func (e *Engine) requestAction(ctx context.Context, competitionID string, roundNumber int, agentID, snapshot string, deadline time.Time, rules model.Rules) (model.Action, bool) {
	start := time.Now()
	defer func() {
		metrics.RecordActionLatency(float64(time.Since(start).Milliseconds()))
	}()

	var lastErr error
	for attempt := 0; attempt <= rules.ActionRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return model.Action{}, false
			case <-time.After(rules.RetryBackoff * time.Duration(attempt)):
			}
		}

		action, err := e.provider.RequestAction(ctx, competitionID, roundNumber, agentID, snapshot, deadline)
		if err == nil {
			return action, true
		}
		lastErr = err
		if !errors.Is(err, agent.ErrProviderUnavailable) {
			break
		}
	}

	e.logger.Warn(ctx, "action request failed",
		logger.String("agentID", agentID),
		logger.Int("round", roundNumber),
		logger.Error(lastErr),
	)
	return model.Action{}, false
}

// openRound allocates the next monotonic round number and registers the round.
func (e *Engine) openRound(c *competition, m *model.Match) *model.Round {
	c.mu.Lock()
	defer c.mu.Unlock()

	round := &model.Round{
		CompetitionID: c.comp.ID,
		MatchID:       m.ID,
		Number:        c.nextRound,
		Status:        model.RoundPending,
		Actions:       make(map[string]model.Action, 2),
		Metrics:       make(map[string]model.Metrics, 2),
		Scores:        make(map[string]float64, 2),
	}
	c.nextRound++
	c.rounds = append(c.rounds, round)
	m.RoundNumbers = append(m.RoundNumbers, round.Number)
	return round
}

// commitRound copies a round's results into the shared state and moves it to
// a terminal status. The shared round is never mutated between open and
// commit; the mutation happens here, under the competition lock.
func (e *Engine) commitRound(c *competition, round *model.Round, actions map[string]model.Action, graded map[string]model.Metrics, scores map[string]float64, winner string, scoredAt time.Time, status model.RoundStatus) {
	c.mu.Lock()
	for k, v := range actions {
		round.Actions[k] = v
	}
	for k, v := range graded {
		round.Metrics[k] = v
	}
	for k, v := range scores {
		round.Scores[k] = v
	}
	round.Winner = winner
	round.ScoredAt = scoredAt
	round.Status = status
	c.mu.Unlock()

	if status == model.RoundErrored {
		metrics.RecordRoundErrored()
	}
}

// escalate queues a scoring fault for operator review. A full queue drops the
// escalation rather than stalling the competition; the round is already
// marked errored either way.
func (e *Engine) escalate(ctx context.Context, competitionID, matchID string, roundNumber int, err error) {
	esc := Escalation{
		CompetitionID: competitionID,
		MatchID:       matchID,
		RoundNumber:   roundNumber,
		Reason:        err.Error(),
		TS:            time.Now().UTC(),
	}

	select {
	case e.escalations <- esc:
		metrics.UpdateOperatorQueueDepth(len(e.escalations))
	default:
		metrics.RecordErrorByComponent("arena", "operator_queue_full")
	}

	e.logger.Error(ctx, "round escalated",
		logger.String("competitionID", competitionID),
		logger.String("matchID", matchID),
		logger.Int("round", roundNumber),
		logger.Error(err),
	)
}

// finalizeCompleted moves the competition to completed and closes its event
// stream. Every MatchCompleted event has already been published, so the
// CompetitionCompleted event is the last one on the partition.
func (e *Engine) finalizeCompleted(ctx context.Context, c *competition) {
	c.mu.Lock()
	c.comp.Status = model.CompetitionCompleted
	c.comp.EndedAt = time.Now().UTC()
	for i := range c.comp.Participants {
		c.comp.Participants[i].Status = model.ParticipantCompleted
	}
	competitionID := c.comp.ID
	results := make(map[string]string, len(c.comp.Results))
	for k, v := range c.comp.Results {
		results[k] = v
	}
	c.mu.Unlock()

	metrics.RecordCompetitionCompleted()
	e.updateActiveGauge()

	e.bus.Publish(ctx, model.CompetitionCompletedEvent{
		CompetitionID: competitionID,
		Results:       results,
		TS:            time.Now().UTC(),
	})
}

// finalizeCancelled marks unscored work cancelled and the competition
// cancelled. Scored rounds and already-published events stay as they are.
func (e *Engine) finalizeCancelled(ctx context.Context, c *competition) {
	c.mu.Lock()
	c.comp.Status = model.CompetitionCancelled
	c.comp.EndedAt = time.Now().UTC()
	for _, round := range c.rounds {
		if round.Status == model.RoundPending {
			round.Status = model.RoundCancelled
		}
	}
	for _, m := range c.matches {
		if m.Status == model.MatchPending || m.Status == model.MatchActive {
			m.Status = model.MatchCancelled
		}
	}
	competitionID := c.comp.ID
	c.mu.Unlock()

	e.logger.Info(ctx, "competition run stopped",
		logger.String("competitionID", competitionID),
	)
}
