// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/arena"
	"github.com/okian/arena/internal/dataset"
	"github.com/okian/arena/internal/leaderboard"
	"github.com/okian/arena/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the app composition.
type Dependencies interface {
	Engine() *arena.Engine
	Leaderboard() *leaderboard.Service
	Datasets() *dataset.Builder
}

// StatsProvider exposes service statistics for the stats endpoint.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	competitionsHandler *CompetitionsHandler
	leaderboardHandler  *LeaderboardHandler
	datasetsHandler     *DatasetsHandler
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	limiter             *rateLimiter
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit enables per-client request limiting; rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = newRateLimiter(rps, burst)
		}
	}
}

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.leaderboardHandler.maxLimit = limit
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		competitionsHandler: NewCompetitionsHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps),
		datasetsHandler:     NewDatasetsHandler(deps),
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/competitions", s.limited(MetricsMiddleware(s.competitionsHandler.HandleCompetitions, "competitions")))
	mux.HandleFunc("/competitions/", s.limited(MetricsMiddleware(s.competitionsHandler.HandleCompetition, "competition")))
	mux.HandleFunc("/leaderboard", s.limited(MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")))
	mux.HandleFunc("/history/", s.limited(MetricsMiddleware(s.leaderboardHandler.HandleGetHistory, "history")))
	mux.HandleFunc("/tiers", s.limited(MetricsMiddleware(s.leaderboardHandler.HandleGetTiers, "tiers")))
	mux.HandleFunc("/datasets", s.limited(MetricsMiddleware(s.datasetsHandler.HandleDatasets, "datasets")))
	mux.HandleFunc("/datasets/", s.limited(MetricsMiddleware(s.datasetsHandler.HandleDataset, "dataset")))
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return s.limiter.middleware(next)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, arena.ErrNotFound),
		errors.Is(err, dataset.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, arena.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, arena.ErrUnknownKind),
		errors.Is(err, arena.ErrParticipantCount),
		errors.Is(err, arena.ErrCompetitionFull),
		errors.Is(err, arena.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
