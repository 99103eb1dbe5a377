package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/orchestrator"
	"github.com/antyra/ranksync/internal/rank"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
	runReadTimeout  = 3 * time.Second
)

// RunHandler exposes run trigger and run history endpoints.
type RunHandler struct {
	runner  Runner
	runs    rank.RunStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunHandler wires the orchestrator, the run store, and the logger.
func NewRunHandler(runner Runner, runs rank.RunStore, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{
		runner:  runner,
		runs:    runs,
		timeout: runReadTimeout,
		logger:  logger,
	}
}

type startRunRequest struct {
	Domains []string `json:"domains"`
}

// StartRun handles POST /v1/runs. The body may name a subset of configured
// domains; an empty body syncs all of them. It returns 202 with the run id,
// 409 while another run is executing, or 400 for unknown domains.
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "run orchestrator unavailable")
		return
	}
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// The run outlives the request; detach it from the request lifecycle.
	runCtx := context.WithoutCancel(r.Context())
	runID, _, err := h.runner.Start(runCtx, rank.TriggerAPI, req.Domains)
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, orchestrator.ErrUnknownDomain), errors.Is(err, orchestrator.ErrNoDomains):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("start run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// ListRuns handles GET /v1/runs?limit=. It returns {"runs": [...]} newest
// first, 400 for an invalid limit, 503 when run history is not configured,
// or 500 if the store call fails.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history unavailable")
		return
	}
	limit, err := parseLimit(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	runs, err := h.runs.ListRuns(ctx, limit)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": toRunDTOs(runs)})
}

// GetRun handles GET /v1/runs/{run_id}. It returns the run header with its
// per-domain results, 404 for unknown ids, 503 when run history is not
// configured, or 500 if the store call fails.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history unavailable")
		return
	}
	runID := chi.URLParam(r, "run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, rank.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	domains, err := h.runs.ListDomainResults(ctx, runID)
	if err != nil {
		h.logger.Error("list domain results failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run domains")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":     toRunDTO(run),
		"domains": toDomainDTOs(domains),
	})
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	limStr := r.URL.Query().Get("limit")
	if limStr == "" {
		return def, nil
	}
	val, err := strconv.Atoi(limStr)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	if val > maxLimit {
		val = maxLimit
	}
	return val, nil
}

func toRunDTOs(in []rank.Run) []runDTO {
	out := make([]runDTO, 0, len(in))
	for _, run := range in {
		out = append(out, toRunDTO(run))
	}
	return out
}

func toRunDTO(run rank.Run) runDTO {
	return runDTO{
		ID:         run.ID,
		Trigger:    string(run.Trigger),
		Status:     string(run.Status),
		StartedAt:  run.Started,
		FinishedAt: run.Finished,
		Processed:  run.Processed,
		Failed:     run.Failed,
	}
}

func toDomainDTOs(in []rank.StoredDomainResult) []domainDTO {
	out := make([]domainDTO, 0, len(in))
	for _, d := range in {
		out = append(out, domainDTO{
			Domain:          d.Domain,
			Succeeded:       d.Succeeded,
			Error:           d.Error,
			KeywordsChecked: d.KeywordsChecked,
			CellsChanged:    d.CellsChanged,
			DurationMS:      d.DurationMS,
			ArchiveURI:      d.ArchiveURI,
		})
	}
	return out
}

type runDTO struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
}

type domainDTO struct {
	Domain          string `json:"domain"`
	Succeeded       bool   `json:"succeeded"`
	Error           string `json:"error,omitempty"`
	KeywordsChecked int    `json:"keywords_checked"`
	CellsChanged    int    `json:"cells_changed"`
	DurationMS      int64  `json:"duration_ms"`
	ArchiveURI      string `json:"archive_uri,omitempty"`
}
