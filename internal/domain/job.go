package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

// Possible job status values. Transitions are monotone: a job never re-enters
// a state it has left, with the single exception of the bounded
// running -> failed -> queued retry loop.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// DefaultMaxAttempts bounds the retry loop for transient failures.
const DefaultMaxAttempts = 3

// Job validation and transition errors.
var (
	ErrEmptyJobID           = errors.New("job ID cannot be empty")
	ErrInvalidJobStatus     = errors.New("invalid job status")
	ErrInvalidJobTransition = errors.New("invalid job status transition")
)

// ItemStatus is the outcome of one resource kind within a job.
type ItemStatus string

// Per-item outcome values.
const (
	ItemStatusDone      ItemStatus = "done"
	ItemStatusFailed    ItemStatus = "failed"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// ItemResult records the outcome of generating one resource kind. PayloadRef
// is the cache fingerprint under which the generated payload is stored, so a
// done item can always be dereferenced against the content cache.
type ItemResult struct {
	Kind       ResourceKind `json:"kind"`
	Status     ItemStatus   `json:"status"`
	PayloadRef Fingerprint  `json:"payload_ref,omitempty"`
	Cached     bool         `json:"cached,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// JobResult is the merged outcome of a job: one ItemResult per requested
// resource kind, in request order. Partial failures above the quorum stay
// visible here rather than failing the job.
type JobResult struct {
	Items []ItemResult `json:"items"`
}

// Succeeded counts items that completed.
func (r JobResult) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Status == ItemStatusDone {
			n++
		}
	}
	return n
}

// Job tracks one generation request through its lifecycle. It is owned
// exclusively by the job manager: other components read snapshots but never
// mutate a Job directly.
type Job struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Request         Request     `json:"request"`
	Fingerprint     Fingerprint `json:"fingerprint"`
	Status          JobStatus   `json:"status"`
	Attempts        int         `json:"attempts"`
	MaxAttempts     int         `json:"max_attempts"`
	Result          *JobResult  `json:"result,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	CancelRequested bool        `json:"cancel_requested"`
	Deadline        *time.Time  `json:"deadline,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewJob creates a queued Job for the given user and normalized request.
func NewJob(userID uuid.UUID, req Request, maxAttempts int) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		Request:     req,
		Fingerprint: req.Fingerprint(),
		Status:      JobStatusQueued,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}
	return j.Request.Validate()
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusDone, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanRetry reports whether a failed attempt may be requeued.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// Transition moves the job to the next status, enforcing the state machine.
// queued -> running | cancelled; running -> done | failed | cancelled;
// failed -> queued while attempts remain. Terminal states (other than the
// retry edge) accept no further transitions.
func (j *Job) Transition(next JobStatus) error {
	if !isValidJobStatus(next) {
		return ErrInvalidJobStatus
	}

	allowed := false
	switch j.Status {
	case JobStatusQueued:
		allowed = next == JobStatusRunning || next == JobStatusCancelled
	case JobStatusRunning:
		allowed = next == JobStatusDone || next == JobStatusFailed || next == JobStatusCancelled
	case JobStatusFailed:
		allowed = next == JobStatusQueued && j.CanRetry()
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidJobTransition, j.Status, next)
	}

	if j.Status == JobStatusQueued && next == JobStatusRunning {
		j.Attempts++
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusQueued, JobStatusRunning, JobStatusDone, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
