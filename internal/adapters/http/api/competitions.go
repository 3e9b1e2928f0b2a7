package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// CompetitionsHandler handles competition lifecycle requests.
type CompetitionsHandler struct {
	deps Dependencies
}

// NewCompetitionsHandler creates a new competitions handler.
func NewCompetitionsHandler(deps Dependencies) *CompetitionsHandler {
	return &CompetitionsHandler{deps: deps}
}

// scheduleRequest mirrors the schema for POST /competitions.
type scheduleRequest struct {
	Kind           string       `json:"kind"`
	ScheduledStart string       `json:"scheduled_start,omitempty"`
	Rules          *model.Rules `json:"rules,omitempty"`
}

// registerRequest mirrors the schema for POST /competitions/{id}/register.
type registerRequest struct {
	AgentID string `json:"agent_id"`
	Seed    int    `json:"seed"`
}

// HandleCompetitions handles POST /competitions.
func (h *CompetitionsHandler) HandleCompetitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Kind) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing kind"))
		return
	}

	start := time.Now().UTC()
	if req.ScheduledStart != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid scheduled_start; must be RFC3339"))
			return
		}
		start = parsed
	}

	comp, err := h.deps.Engine().Schedule(r.Context(), model.CompetitionKind(req.Kind), req.Rules, start)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusCreated, comp)
}

// HandleCompetition handles GET /competitions/{id} and the lifecycle actions
// POST /competitions/{id}/{register|start|cancel}.
func (h *CompetitionsHandler) HandleCompetition(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/competitions/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		snap, err := h.deps.Engine().Get(r.Context(), id)
		if err != nil {
			status, code := statusFor(err)
			writeError(w, status, code, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var err error
	switch parts[1] {
	case "register":
		var req registerRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
			return
		}
		if strings.TrimSpace(req.AgentID) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing agent_id"))
			return
		}
		err = h.deps.Engine().Register(r.Context(), id, req.AgentID, req.Seed)
	case "start":
		err = h.deps.Engine().Start(r.Context(), id)
	case "cancel":
		err = h.deps.Engine().Cancel(r.Context(), id)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
