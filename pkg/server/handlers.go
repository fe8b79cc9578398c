package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/network-type-similarity/pkg/output"
	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

const maxRequestBytes = 64 << 20

// Handlers contains HTTP request handlers
type Handlers struct {
	jobService *JobService
	startedAt  time.Time
}

// NewHandlers creates new API handlers
func NewHandlers(jobService *JobService) *Handlers {
	return &Handlers{jobService: jobService, startedAt: time.Now()}
}

// CreateAnalysis queues a new analysis job
func (h *Handlers) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.jobService.Submit(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to submit analysis")
		WriteErrorResponse(w, http.StatusBadRequest, "Failed to submit analysis", err)
		return
	}

	WriteAcceptedResponse(w, "Analysis queued", AnalysisResponse{JobID: job.ID, Job: *job})
}

// ListAnalyses lists all jobs
func (h *Handlers) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	WriteSuccessResponse(w, "Analyses retrieved successfully", h.jobService.List())
}

// GetAnalysis returns the status of a job
func (h *Handlers) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["analysisId"]

	job, err := h.jobService.Get(jobID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "Analysis not found", err)
		return
	}
	WriteSuccessResponse(w, "Analysis retrieved successfully", job)
}

// CancelAnalysis cancels a queued or running job
func (h *Handlers) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["analysisId"]

	if err := h.jobService.Cancel(jobID); err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "Analysis not found", err)
		return
	}
	job, err := h.jobService.Get(jobID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "Analysis not found", err)
		return
	}
	WriteSuccessResponse(w, "Analysis cancelled", job)
}

// GetHeatmap returns the averaged and normalized confusion matrices
func (h *Handlers) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	if result, ok := h.result(w, r); ok {
		WriteSuccessResponse(w, "Heatmap retrieved successfully", output.Heatmap(result))
	}
}

// GetDistance returns the distance matrix
func (h *Handlers) GetDistance(w http.ResponseWriter, r *http.Request) {
	if result, ok := h.result(w, r); ok {
		WriteSuccessResponse(w, "Distance matrix retrieved successfully", output.Distance(result))
	}
}

// GetSimilarity returns the symmetric similarity matrix
func (h *Handlers) GetSimilarity(w http.ResponseWriter, r *http.Request) {
	if result, ok := h.result(w, r); ok {
		WriteSuccessResponse(w, "Similarity matrix retrieved successfully", output.Similarity(result))
	}
}

// GetGraph returns the similarity graph with layout hints
func (h *Handlers) GetGraph(w http.ResponseWriter, r *http.Request) {
	result, ok := h.result(w, r)
	if !ok {
		return
	}
	view, err := output.Graph(result)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to build graph view", err)
		return
	}
	WriteSuccessResponse(w, "Graph retrieved successfully", view)
}

// GetFeatures returns the feature consensus
func (h *Handlers) GetFeatures(w http.ResponseWriter, r *http.Request) {
	if result, ok := h.result(w, r); ok {
		WriteSuccessResponse(w, "Features retrieved successfully", output.Features(result))
	}
}

// GetEmbedding returns the 2D placement of the distance view
func (h *Handlers) GetEmbedding(w http.ResponseWriter, r *http.Request) {
	result, ok := h.result(w, r)
	if !ok {
		return
	}
	view, err := output.Embedding(result)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to build embedding", err)
		return
	}
	WriteSuccessResponse(w, "Embedding retrieved successfully", view)
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteSuccessResponse(w, "Service is healthy", map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startedAt).String(),
		"jobs":   len(h.jobService.List()),
	})
}

// result looks up a completed job's result, writing the error response
// when there is none
func (h *Handlers) result(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	jobID := mux.Vars(r)["analysisId"]

	result, err := h.jobService.GetResult(jobID)
	switch {
	case err == nil:
		return result, true
	case errors.Is(err, ErrJobNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "Analysis not found", err)
	case errors.Is(err, ErrResultNotReady):
		WriteErrorResponse(w, http.StatusConflict, "Analysis has no result yet", err)
	default:
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to load result", err)
	}
	return nil, false
}
