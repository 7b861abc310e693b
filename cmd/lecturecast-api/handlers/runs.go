package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
	"github.com/spherical/lecturecast/internal/storage"
)

// RunLedger reads recorded runs.
type RunLedger interface {
	Get(ctx context.Context, id string) (*storage.Run, error)
	List(ctx context.Context, limit int) ([]storage.Run, error)
}

// ResultSource resolves completed runs to their results.
type ResultSource interface {
	RunPayload(ctx context.Context, runID string) (*domain.ResultPayload, error)
	RunResult(ctx context.Context, runID string) (*domain.PipelineResult, error)
}

// HandoutRenderer renders a result as a PDF.
type HandoutRenderer interface {
	Render(result *domain.PipelineResult) ([]byte, error)
}

// RunHandler serves the run ledger and finished results.
type RunHandler struct {
	logger   *observability.Logger
	runs     RunLedger
	results  ResultSource
	handouts HandoutRenderer
}

// NewRunHandler creates a new run handler.
func NewRunHandler(logger *observability.Logger, runs RunLedger, results ResultSource, handouts HandoutRenderer) *RunHandler {
	return &RunHandler{
		logger:   logger.WithComponent("runs"),
		runs:     runs,
		results:  results,
		handouts: handouts,
	}
}

// RunListDTO is the response of GET /api/v1/runs.
type RunListDTO struct {
	Runs  []storage.Run `json:"runs"`
	Count int           `json:"count"`
}

// List handles GET /api/v1/runs?limit=N.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", string(domain.ErrorTypeValidation))
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, h.logger, domain.IOError("failed to list runs", err))
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, RunListDTO{Runs: runs, Count: len(runs)})
}

// Get handles GET /api/v1/runs/{runId}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	run, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found", string(domain.ErrorTypeSourceNotFound))
		return
	}
	if err != nil {
		writeDomainError(w, h.logger, domain.IOError("failed to read run", err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Result handles GET /api/v1/runs/{runId}/result.
func (h *RunHandler) Result(w http.ResponseWriter, r *http.Request) {
	payload, err := h.results.RunPayload(r.Context(), chi.URLParam(r, "runId"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Handout handles GET /api/v1/runs/{runId}/handout.pdf.
func (h *RunHandler) Handout(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	result, err := h.results.RunResult(r.Context(), runID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	data, err := h.handouts.Render(result)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s-handout.pdf"`, runID))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
