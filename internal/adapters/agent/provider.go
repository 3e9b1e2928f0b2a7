// Package agent declares the collaborator interfaces the arena consumes:
// the sandboxed agent-action service and the action grader.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// Default simulation constants.
const (
	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 80 * time.Millisecond
	defaultRandomSeed = 42
)

// ActionProvider requests an action from a competing agent. Implementations
// must respect the deadline; an agent that does not answer in time forfeits
// the round, it is not an infrastructure error.
type ActionProvider interface {
	RequestAction(ctx context.Context, competitionID string, roundNumber int, agentID, contextSnapshot string, deadline time.Time) (model.Action, error)
}

// Grader scores a submitted action against the challenge, returning every
// metric normalized to [0,100].
type Grader interface {
	Grade(ctx context.Context, action model.Action, challengeSpec string) (model.Metrics, error)
}

// Option applies a configuration option to the simulated provider.
type Option func(*SimulatedProvider)

// WithLatencyRange sets the simulated agent think-time range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(p *SimulatedProvider) {
		if minLatency > 0 && maxLatency > minLatency {
			p.minLatency = minLatency
			p.maxLatency = maxLatency
		}
	}
}

// WithSeed sets the random seed for deterministic simulation.
func WithSeed(seed int64) Option {
	return func(p *SimulatedProvider) {
		p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible simulation
	}
}

// WithSilentAgent makes the given agent never respond, forcing deadline
// forfeits. Used to exercise the forfeit path end to end.
func WithSilentAgent(agentID string) Option {
	return func(p *SimulatedProvider) {
		p.silent[agentID] = true
	}
}

// WithFailingAgent makes the given agent return provider errors for the
// first n requests, exercising the bounded-retry path.
func WithFailingAgent(agentID string, n int) Option {
	return func(p *SimulatedProvider) {
		p.failures[agentID] = n
	}
}

// SimulatedProvider implements ActionProvider with simulated agent latency,
// standing in for the external sandboxed execution service.
type SimulatedProvider struct {
	mu         sync.Mutex
	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand
	silent     map[string]bool
	failures   map[string]int
}

// NewSimulatedProvider creates a provider with configuration options.
func NewSimulatedProvider(opts ...Option) *SimulatedProvider {
	p := &SimulatedProvider{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
		silent:     make(map[string]bool),
		failures:   make(map[string]int),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// RequestAction simulates an agent producing an action before the deadline.
func (p *SimulatedProvider) RequestAction(ctx context.Context, competitionID string, roundNumber int, agentID, contextSnapshot string, deadline time.Time) (model.Action, error) {
	p.mu.Lock()
	if n := p.failures[agentID]; n > 0 {
		p.failures[agentID] = n - 1
		p.mu.Unlock()
		return model.Action{}, fmt.Errorf("%w: agent %s", ErrProviderUnavailable, agentID)
	}
	silent := p.silent[agentID]
	latency := p.minLatency + time.Duration(p.rng.Int63n(int64(p.maxLatency-p.minLatency)))
	p.mu.Unlock()

	if silent {
		select {
		case <-ctx.Done():
			return model.Action{}, fmt.Errorf("%w: agent %s", ErrActionTimeout, agentID)
		case <-time.After(time.Until(deadline)):
			return model.Action{}, fmt.Errorf("%w: agent %s", ErrActionTimeout, agentID)
		}
	}

	select {
	case <-ctx.Done():
		return model.Action{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	if time.Now().After(deadline) {
		return model.Action{}, fmt.Errorf("%w: agent %s", ErrActionTimeout, agentID)
	}

	return model.Action{
		AgentID:     agentID,
		Payload:     fmt.Sprintf("action(%s:r%d:%s)", competitionID, roundNumber, agentID),
		Context:     contextSnapshot,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// GraderOption applies a configuration option to the simulated grader.
type GraderOption func(*SimulatedGrader)

// WithGraderSeed sets the random seed for deterministic grading.
func WithGraderSeed(seed int64) GraderOption {
	return func(g *SimulatedGrader) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible simulation
	}
}

// WithAgentSkill biases the simulated correctness for an agent, in [0,1].
// Higher skill grades higher on average.
func WithAgentSkill(agentID string, skill float64) GraderOption {
	return func(g *SimulatedGrader) {
		if skill >= 0 && skill <= 1 {
			g.skills[agentID] = skill
		}
	}
}

// WithBrokenGrading makes the grader return an out-of-range metric for the
// given agent, exercising the errored-round escalation path.
func WithBrokenGrading(agentID string) GraderOption {
	return func(g *SimulatedGrader) {
		g.broken[agentID] = true
	}
}

// SimulatedGrader implements Grader with pseudo-random metrics, standing in
// for the external grading service.
type SimulatedGrader struct {
	mu     sync.Mutex
	rng    *rand.Rand
	skills map[string]float64
	broken map[string]bool
}

// NewSimulatedGrader creates a grader with configuration options.
func NewSimulatedGrader(opts ...GraderOption) *SimulatedGrader {
	g := &SimulatedGrader{
		rng:    rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
		skills: make(map[string]float64),
		broken: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Grade returns simulated metrics for the action.
func (g *SimulatedGrader) Grade(ctx context.Context, action model.Action, challengeSpec string) (model.Metrics, error) {
	select {
	case <-ctx.Done():
		return model.Metrics{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.broken[action.AgentID] {
		return model.Metrics{Correctness: 250, Speed: 50, Efficiency: 50, Creativity: 50}, nil
	}

	skill, ok := g.skills[action.AgentID]
	if !ok {
		skill = 0.5
	}

	// Skill shifts the band an agent grades in; the spread stays random.
	band := func() float64 {
		base := 40*skill + 30 // [30,70]
		return base + g.rng.Float64()*30
	}

	return model.Metrics{
		Correctness: band(),
		Speed:       band(),
		Efficiency:  band(),
		Creativity:  band(),
	}, nil
}
