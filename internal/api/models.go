package api

import (
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
)

// Common request/response structures

// SubmitGenerationRequest defines the payload for the job submission endpoint.
// Normalization (trimming, case folding, sorting) happens in the domain layer;
// the tags here only reject structurally hopeless input early.
type SubmitGenerationRequest struct {
	UserID        string   `json:"user_id"        validate:"required,uuid4"`
	ResourceKinds []string `json:"resource_kinds" validate:"required,min=1,dive,required"`
	Topic         string   `json:"topic"          validate:"required"`
	Subject       string   `json:"subject"`
	GradeLevel    string   `json:"grade_level"    validate:"required"`
	Language      string   `json:"language"`
	SectionCount  int      `json:"section_count"  validate:"gte=0,lte=20"`
	Standards     []string `json:"standards"`
}

// SubmitGenerationResponse defines the successful response for job submission.
type SubmitGenerationResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ItemResultResponse represents one resource kind's outcome within a job.
type ItemResultResponse struct {
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	PayloadRef string `json:"payload_ref,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobStatusResponse represents a snapshot of a job.
type JobStatusResponse struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	Attempts     int                  `json:"attempts"`
	Items        []ItemResultResponse `json:"items,omitempty"`
	ErrorMessage string               `json:"error,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// CancelResponse defines the response for the cancellation endpoint.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// jobToStatusResponse converts a domain.Job to a JobStatusResponse
func jobToStatusResponse(job *domain.Job) JobStatusResponse {
	resp := JobStatusResponse{
		ID:           job.ID.String(),
		Status:       string(job.Status),
		Attempts:     job.Attempts,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}

	if job.Result != nil {
		resp.Items = make([]ItemResultResponse, 0, len(job.Result.Items))
		for _, item := range job.Result.Items {
			resp.Items = append(resp.Items, ItemResultResponse{
				Kind:       string(item.Kind),
				Status:     string(item.Status),
				PayloadRef: string(item.PayloadRef),
				Cached:     item.Cached,
				Error:      item.Error,
			})
		}
	}

	return resp
}
