package api

import (
	"net/http"
	"strconv"
	"strings"
)

// Default leaderboard query limits.
const (
	defaultMaxLimit     = 100
	defaultHistoryLimit = 50
)

// LeaderboardHandler handles leaderboard, history and tier requests.
type LeaderboardHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: defaultMaxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadLimit)
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadLimit)
		return
	}
	entries, err := h.deps.Leaderboard().TopN(r.Context(), n)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetHistory handles GET /history/{agentID}?limit=N requests.
func (h *LeaderboardHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	agentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/history/"), "/")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingAgentID)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadLimit)
			return
		}
		limit = n
	}

	history, err := h.deps.Leaderboard().History(r.Context(), agentID, limit)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleGetTiers handles GET /tiers requests.
func (h *LeaderboardHandler) HandleGetTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Leaderboard().TierDistribution(r.Context()))
}
