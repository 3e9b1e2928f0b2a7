// Package arena runs competition lifecycles: pairing, round advancement,
// scoring, and event emission.
//
// Each competition is owned by a single goroutine, so round advancement
// within a competition is serialized while unrelated competitions run in
// parallel without coordination.
package arena

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/arena/internal/adapters/agent"
	"github.com/okian/arena/internal/adapters/bus"
	"github.com/okian/arena/internal/domain/bracket"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultOperatorQueueSize = 256
)

// Escalation is a scoring fault handed to an operator instead of being
// guessed away.
type Escalation struct {
	CompetitionID string    `json:"competition_id"`
	MatchID       string    `json:"match_id"`
	RoundNumber   int       `json:"round_number"`
	Reason        string    `json:"reason"`
	TS            time.Time `json:"ts"`
}

// competition is the engine's runtime state for one competition. The comp
// mutex guards everything below it; the run goroutine is the only writer
// while the competition is active.
type competition struct {
	mu        sync.Mutex
	comp      *model.Competition
	matches   map[int]*model.Match // by bracket position
	rounds    []*model.Round
	nextRound int
	cancel    context.CancelFunc
	done      chan struct{}
}

// Engine is the competition state machine.
type Engine struct {
	provider agent.ActionProvider
	grader   agent.Grader
	bus      bus.Bus
	defaults model.Rules

	mu           sync.RWMutex
	competitions map[string]*competition

	escalations chan Escalation
	wg          sync.WaitGroup
	logger      logger.Logger
}

// New creates an engine with the given collaborators.
func New(provider agent.ActionProvider, grader agent.Grader, b bus.Bus, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		grader:       grader,
		bus:          b,
		defaults:     model.DefaultRules(),
		competitions: make(map[string]*competition),
		escalations:  make(chan Escalation, defaultOperatorQueueSize),
		logger:       logger.Get().Named("arena"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Schedule creates a competition in the scheduled state.
func (e *Engine) Schedule(ctx context.Context, kind model.CompetitionKind, rules *model.Rules, start time.Time) (*model.Competition, error) {
	switch kind {
	case model.KindIndividual, model.KindTeam, model.KindTournament:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	r := e.defaults
	if rules != nil {
		r = *rules
	}

	comp := &model.Competition{
		ID:             uuid.New().String(),
		Kind:           kind,
		Status:         model.CompetitionScheduled,
		Rules:          r,
		ScheduledStart: start,
	}

	e.mu.Lock()
	e.competitions[comp.ID] = &competition{
		comp:      comp,
		matches:   make(map[int]*model.Match),
		nextRound: 1,
		done:      make(chan struct{}),
	}
	e.mu.Unlock()

	e.logger.Info(ctx, "competition scheduled",
		logger.String("competitionID", comp.ID),
		logger.String("kind", string(kind)),
	)
	return snapshotCompetition(comp), nil
}

// Register adds a participant to a scheduled competition.
func (e *Engine) Register(ctx context.Context, competitionID, agentID string, seed int) error {
	c, err := e.get(competitionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.comp.Status != model.CompetitionScheduled {
		return fmt.Errorf("%w: cannot register in status %s", ErrInvalidTransition, c.comp.Status)
	}
	if len(c.comp.Participants) >= c.comp.Rules.MaxParticipants {
		return ErrCompetitionFull
	}
	for _, p := range c.comp.Participants {
		if p.AgentID == agentID {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, agentID)
		}
	}

	c.comp.Participants = append(c.comp.Participants, model.Participant{
		CompetitionID: competitionID,
		AgentID:       agentID,
		Seed:          seed,
		Status:        model.ParticipantRegistered,
	})
	return nil
}

// Start transitions a scheduled competition to active and launches its run
// goroutine. For tournaments this seeds the bracket, handing byes to the
// highest seeds when the participant count is not a power of two.
func (e *Engine) Start(ctx context.Context, competitionID string) error {
	c, err := e.get(competitionID)
	if err != nil {
		return err
	}

	c.mu.Lock()

	if c.comp.Status != model.CompetitionScheduled {
		status := c.comp.Status
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, status)
	}

	n := len(c.comp.Participants)
	if n < c.comp.Rules.MinParticipants || n > c.comp.Rules.MaxParticipants {
		minP, maxP := c.comp.Rules.MinParticipants, c.comp.Rules.MaxParticipants
		c.mu.Unlock()
		return fmt.Errorf("%w: %d participants, want [%d,%d]", ErrParticipantCount, n, minP, maxP)
	}
	if c.comp.Kind == model.KindTeam && n%2 != 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: team competitions need even rosters, got %d", ErrParticipantCount, n)
	}

	newID := func() string { return uuid.New().String() }
	var matches []*model.Match
	switch c.comp.Kind {
	case model.KindTournament:
		matches = bracket.Build(competitionID, c.comp.Participants, newID)
	case model.KindIndividual:
		matches = bracket.PairBySeed(competitionID, c.comp.Participants, newID)
	case model.KindTeam:
		matches = []*model.Match{{
			ID:            newID(),
			CompetitionID: competitionID,
			BracketPos:    1,
			Slots:         [2]string{model.TeamSlotA, model.TeamSlotB},
			Status:        model.MatchPending,
		}}
	}
	for _, m := range matches {
		c.matches[m.BracketPos] = m
	}

	now := time.Now().UTC()
	c.comp.Status = model.CompetitionActive
	c.comp.ActualStart = now
	for i := range c.comp.Participants {
		c.comp.Participants[i].Status = model.ParticipantActive
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.mu.Unlock()

	// Gauge refresh walks every competition lock, so it must run unlocked.
	metrics.RecordCompetitionStarted()
	e.updateActiveGauge()

	e.wg.Add(1)
	go e.run(runCtx, c)

	e.logger.Info(ctx, "competition started",
		logger.String("competitionID", competitionID),
		logger.Int("participants", n),
		logger.Int("matches", len(matches)),
	)
	return nil
}

// Cancel stops a scheduled or active competition. The in-flight round is
// aborted and unscored work marked cancelled; scored rounds and any applied
// ratings are history and stay untouched.
func (e *Engine) Cancel(ctx context.Context, competitionID string) error {
	c, err := e.get(competitionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	status := c.comp.Status
	if status != model.CompetitionScheduled && status != model.CompetitionActive {
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, status)
	}
	cancel := c.cancel
	if status == model.CompetitionScheduled {
		// Never ran; finalize inline.
		c.comp.Status = model.CompetitionCancelled
		c.comp.EndedAt = time.Now().UTC()
		close(c.done)
	}
	c.mu.Unlock()

	if status == model.CompetitionActive && cancel != nil {
		cancel()
		<-c.done // run goroutine finalizes cancellation
	}

	metrics.RecordCompetitionCancelled()
	e.updateActiveGauge()

	e.logger.Info(ctx, "competition cancelled",
		logger.String("competitionID", competitionID),
		logger.String("from", string(status)),
	)
	return nil
}

// Snapshot is a read-only view of one competition's state.
type Snapshot struct {
	Competition model.Competition `json:"competition"`
	Matches     []model.Match     `json:"matches"`
	Rounds      []model.Round     `json:"rounds"`
}

// Get returns a copy of the competition state.
func (e *Engine) Get(_ context.Context, competitionID string) (Snapshot, error) {
	c, err := e.get(competitionID)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Competition: *snapshotCompetition(c.comp)}
	for _, m := range c.matches {
		snap.Matches = append(snap.Matches, snapshotMatch(m))
	}
	for _, r := range c.rounds {
		snap.Rounds = append(snap.Rounds, snapshotRound(r))
	}
	return snap, nil
}

// Escalations exposes the operator queue.
func (e *Engine) Escalations() <-chan Escalation {
	return e.escalations
}

// ActiveCount returns the number of running competitions.
func (e *Engine) ActiveCount(_ context.Context) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, c := range e.competitions {
		c.mu.Lock()
		if c.comp.Status == model.CompetitionActive {
			n++
		}
		c.mu.Unlock()
	}
	return n
}

// Wait blocks until all run goroutines have finished. Used on shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) get(competitionID string) (*competition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.competitions[competitionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, competitionID)
	}
	return c, nil
}

func (e *Engine) updateActiveGauge() {
	metrics.UpdateActiveCompetitions(e.ActiveCount(context.Background()))
}

// snapshotMatch deep-copies a match so callers never share the live slice.
func snapshotMatch(m *model.Match) model.Match {
	out := *m
	out.RoundNumbers = append([]int(nil), m.RoundNumbers...)
	return out
}

// snapshotRound deep-copies a round so callers never share the live maps.
func snapshotRound(r *model.Round) model.Round {
	out := *r
	if r.Actions != nil {
		out.Actions = make(map[string]model.Action, len(r.Actions))
		for k, v := range r.Actions {
			out.Actions[k] = v
		}
	}
	if r.Metrics != nil {
		out.Metrics = make(map[string]model.Metrics, len(r.Metrics))
		for k, v := range r.Metrics {
			out.Metrics[k] = v
		}
	}
	if r.Scores != nil {
		out.Scores = make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			out.Scores[k] = v
		}
	}
	return out
}

// snapshotCompetition deep-copies the mutable parts of a competition.
func snapshotCompetition(comp *model.Competition) *model.Competition {
	out := *comp
	out.Participants = append([]model.Participant(nil), comp.Participants...)
	if comp.Results != nil {
		out.Results = make(map[string]string, len(comp.Results))
		for k, v := range comp.Results {
			out.Results[k] = v
		}
	}
	return &out
}
