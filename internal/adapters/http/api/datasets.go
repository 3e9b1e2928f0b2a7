package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DatasetsHandler handles dataset build and export requests.
type DatasetsHandler struct {
	deps Dependencies
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(deps Dependencies) *DatasetsHandler {
	return &DatasetsHandler{deps: deps}
}

// buildRequest mirrors the schema for POST /datasets.
type buildRequest struct {
	WindowStart    string   `json:"window_start,omitempty"`
	WindowEnd      string   `json:"window_end,omitempty"`
	CompetitionIDs []string `json:"competition_ids,omitempty"`
}

// HandleDatasets handles GET /datasets (list) and POST /datasets (build).
func (h *DatasetsHandler) HandleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Datasets().List(r.Context()))
	case http.MethodPost:
		h.handleBuild(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *DatasetsHandler) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
		return
	}

	var windowStart, windowEnd time.Time
	var err error
	if req.WindowStart != "" {
		if windowStart, err = time.Parse(time.RFC3339, req.WindowStart); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid window_start; must be RFC3339"))
			return
		}
	}
	if req.WindowEnd != "" {
		if windowEnd, err = time.Parse(time.RFC3339, req.WindowEnd); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid window_end; must be RFC3339"))
			return
		}
	}

	ds, err := h.deps.Datasets().Build(r.Context(), windowStart, windowEnd, req.CompetitionIDs)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

// HandleDataset handles GET /datasets/ready, GET /datasets/{id} and
// GET /datasets/{id}/export.
func (h *DatasetsHandler) HandleDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/datasets/"), "/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if rest == "ready" {
		h.handleReady(w, r)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]

	if len(parts) == 2 {
		if parts[1] != "export" {
			http.NotFound(w, r)
			return
		}
		raw, err := h.deps.Datasets().Export(r.Context(), id)
		if err != nil {
			status, code := statusFor(err)
			writeError(w, status, code, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}

	ds, ok := h.deps.Datasets().Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("dataset not found: "+id))
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// handleReady handles GET /datasets/ready?since=RFC3339: the datasets the
// downstream training process may consume.
func (h *DatasetsHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid since; must be RFC3339"))
			return
		}
		since = parsed
	}
	writeJSON(w, http.StatusOK, h.deps.Datasets().FetchReadyDatasets(r.Context(), since))
}
