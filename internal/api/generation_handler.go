package api

import (
	"net/http"

	"github.com/calebmoore/lessonforge-api/internal/api/shared"
	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GenerationHandler handles generation-job HTTP requests
type GenerationHandler struct {
	jobService service.JobService
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(jobService service.JobService) *GenerationHandler {
	return &GenerationHandler{
		jobService: jobService,
	}
}

// SubmitGeneration handles POST /api/generations requests.
// A valid request is accepted with 202 before any generation work happens.
func (h *GenerationHandler) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	var req SubmitGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	genReq, err := domain.NewRequest(
		req.ResourceKinds,
		req.Topic,
		req.Subject,
		req.GradeLevel,
		req.Language,
		req.SectionCount,
		req.Standards,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	job, err := h.jobService.Submit(r.Context(), userID, genReq)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitGenerationResponse{
		JobID:  job.ID.String(),
		Status: string(job.Status),
	})
}

// GetGeneration handles GET /api/generations/{id} requests
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	job, err := h.jobService.Status(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToStatusResponse(job))
}

// CancelGeneration handles POST /api/generations/{id}/cancel requests.
// The response reports whether a cancellation was applied or requested;
// cancelling an already-terminal job is not an error.
func (h *GenerationHandler) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	cancelled, err := h.jobService.Cancel(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{Cancelled: cancelled})
}

// jobIDFromRequest extracts and parses the job ID path parameter, responding
// with 400 on malformed input.
func (h *GenerationHandler) jobIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}
