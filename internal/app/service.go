// Package app composes the arena components into the running service the
// HTTP API depends on.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/okian/arena/internal/adapters/agent"
	"github.com/okian/arena/internal/adapters/bus"
	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/arena"
	"github.com/okian/arena/internal/dataset"
	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/leaderboard"
	"github.com/okian/arena/internal/pipeline"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultBusCapacity     = 1024
	defaultShardCount      = 8
	defaultHistorySize     = 256
	defaultLockStripes     = 64
	defaultMatchDedupe     = 100_000
	defaultPointDedupe     = 500_000
	defaultMinQuality      = 0.90
	defaultMinPoints       = 1000
	defaultBuildInterval   = time.Minute
	defaultOperatorQueue   = 256
	defaultRewardMin       = -1.0
	defaultRewardMax       = 1.0
	defaultBuildWindowSpan = 24 * time.Hour
)

// Service wires the engine, bus, leaderboard, pipeline and dataset builder.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine      *arena.Engine
	eventBus    *bus.InMemoryBus
	board       *leaderboard.Service
	ingest      *pipeline.Pipeline
	builder     *dataset.Builder
	store       repository.Store
	provider    agent.ActionProvider
	grader      agent.Grader
	defaultRule model.Rules

	// Configuration
	busCapacity       int
	shardCount        int
	historySize       int
	lockStripes       int
	matchDedupeSize   int
	pointDedupeSize   int
	minQuality        float64
	minPoints         int
	buildInterval     time.Duration
	operatorQueueSize int
	rewardMin         float64
	rewardMax         float64

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBusCapacity bounds each competition's event partition.
func WithBusCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.busCapacity = capacity
		}
	}
}

// WithShardCount configures the leaderboard store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithHistorySize bounds the per-agent rating history.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithLockStripes sets the number of rating lock stripes.
func WithLockStripes(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.lockStripes = count
		}
	}
}

// WithDedupeSizes bounds the match-id and point-key idempotency caches.
func WithDedupeSizes(matchSize, pointSize int) Option {
	return func(s *Service) {
		if matchSize > 0 {
			s.matchDedupeSize = matchSize
		}
		if pointSize > 0 {
			s.pointDedupeSize = pointSize
		}
	}
}

// WithReadinessGate sets the dataset readiness thresholds.
func WithReadinessGate(minQuality float64, minPoints int) Option {
	return func(s *Service) {
		if minQuality > 0 && minQuality <= 1 {
			s.minQuality = minQuality
		}
		if minPoints > 0 {
			s.minPoints = minPoints
		}
	}
}

// WithBuildInterval drives the periodic dataset build; 0 disables it.
func WithBuildInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.buildInterval = interval
		}
	}
}

// WithRewardBounds sets the training reward domain.
func WithRewardBounds(minReward, maxReward float64) Option {
	return func(s *Service) {
		if maxReward > minReward {
			s.rewardMin = minReward
			s.rewardMax = maxReward
		}
	}
}

// WithOperatorQueueSize bounds the escalation queue.
func WithOperatorQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.operatorQueueSize = size
		}
	}
}

// WithDefaultRules overrides the default competition ruleset.
func WithDefaultRules(r model.Rules) Option {
	return func(s *Service) {
		s.defaultRule = r
	}
}

// WithActionProvider injects the agent action collaborator.
func WithActionProvider(p agent.ActionProvider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithGrader injects the grading collaborator.
func WithGrader(g agent.Grader) Option {
	return func(s *Service) {
		if g != nil {
			s.grader = g
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		busCapacity:       defaultBusCapacity,
		shardCount:        defaultShardCount,
		historySize:       defaultHistorySize,
		lockStripes:       defaultLockStripes,
		matchDedupeSize:   defaultMatchDedupe,
		pointDedupeSize:   defaultPointDedupe,
		minQuality:        defaultMinQuality,
		minPoints:         defaultMinPoints,
		buildInterval:     defaultBuildInterval,
		operatorQueueSize: defaultOperatorQueue,
		rewardMin:         defaultRewardMin,
		rewardMax:         defaultRewardMax,
		defaultRule:       model.DefaultRules(),
		stopCh:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components, subscribing the
// leaderboard and the ingestion pipeline to the event bus.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting arena service...")

	s.store = repository.NewMemStore(ctx,
		repository.WithShardCount(s.shardCount),
		repository.WithHistoryLimit(s.historySize),
	)
	s.eventBus = bus.New(ctx, bus.WithPartitionCapacity(s.busCapacity))
	s.board = leaderboard.New(s.store,
		leaderboard.WithLockStripes(s.lockStripes),
		leaderboard.WithDedupeSize(s.matchDedupeSize),
	)
	s.ingest = pipeline.New(pipeline.NewPointStore(),
		pipeline.WithRewardBounds(s.rewardMin, s.rewardMax),
		pipeline.WithDeduper(dedupe.New(dedupe.WithMaxSize(s.pointDedupeSize))),
	)
	s.builder = dataset.New(s.ingest.Points(),
		dataset.WithMinQuality(s.minQuality),
		dataset.WithMinPoints(s.minPoints),
	)

	if s.provider == nil {
		s.provider = agent.NewSimulatedProvider()
	}
	if s.grader == nil {
		s.grader = agent.NewSimulatedGrader()
	}

	s.eventBus.Subscribe("leaderboard", s.board.HandleEvent)
	s.eventBus.Subscribe("pipeline", s.ingest.HandleEvent)

	s.engine = arena.New(s.provider, s.grader, s.eventBus,
		arena.WithDefaultRules(s.defaultRule),
		arena.WithOperatorQueueSize(s.operatorQueueSize),
	)

	if s.buildInterval > 0 {
		go s.buildLoop(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "arena service started",
		logger.Int("busCapacity", s.busCapacity),
		logger.Int("shardCount", s.shardCount),
		logger.Int("minPoints", s.minPoints),
	)
	return nil
}

// Stop gracefully shuts down the service: no new competitions, wait for
// running ones, then drain the bus.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping arena service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	if s.engine != nil {
		s.engine.Wait()
	}
	if s.eventBus != nil {
		_ = s.eventBus.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "arena service stopped")
}

// buildLoop rebuilds the rolling dataset on a timer.
func (s *Service) buildLoop(ctx context.Context) {
	ticker := time.NewTicker(s.buildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			end := time.Now().UTC()
			start := end.Add(-defaultBuildWindowSpan)
			if _, err := s.builder.Build(ctx, start, end, nil); err != nil {
				s.logger.Error(ctx, "periodic dataset build failed", logger.Error(err))
			}
		}
	}
}

// Engine exposes the competition state machine.
func (s *Service) Engine() *arena.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Leaderboard exposes the rating service.
func (s *Service) Leaderboard() *leaderboard.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Pipeline exposes the ingestion pipeline.
func (s *Service) Pipeline() *pipeline.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ingest
}

// Datasets exposes the dataset builder.
func (s *Service) Datasets() *dataset.Builder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builder
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"busCapacity": s.busCapacity,
		"shardCount":  s.shardCount,
	}

	if s.started {
		stats["activeCompetitions"] = s.engine.ActiveCount(ctx)
		stats["trackedAgents"] = s.board.Count(ctx)
		stats["busDepth"] = s.eventBus.Depth(ctx)
		stats["trainingPoints"] = s.ingest.Points().Count(ctx)
		stats["datasets"] = len(s.builder.List(ctx))

		metrics.UpdateActiveCompetitions(s.engine.ActiveCount(ctx))
		metrics.UpdateTrackedAgents(s.board.Count(ctx))
		metrics.UpdateBusDepth(s.eventBus.Depth(ctx))
	}

	return stats
}
