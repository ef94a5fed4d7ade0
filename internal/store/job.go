package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/google/uuid"
)

// JobStore defines the interface for job data persistence.
//
// Status transitions are compare-and-swap operations: the store only applies
// a transition when the job is still in the expected state, and returns
// ErrStaleStatus otherwise. This is what makes duplicate queue deliveries
// safe: the second worker to claim a job observes the swap failure and
// skips it.
// Version: 1.0
type JobStore interface {
	// Create saves a new job to the store.
	// Returns validation errors from the domain Job if data is invalid.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// MarkRunning transitions a queued job to running, increments its attempt
	// counter, and stamps the execution deadline.
	// Returns ErrStaleStatus if the job is not queued.
	MarkRunning(ctx context.Context, id uuid.UUID, deadline time.Time) error

	// MarkDone transitions a running job to done and records its result.
	// Returns ErrStaleStatus if the job is not running.
	MarkDone(ctx context.Context, id uuid.UUID, result *domain.JobResult) error

	// MarkFailed transitions a running job to failed with the given error
	// message. A non-nil result records the partial per-item outcomes of the
	// failed attempt; nil leaves any previously stored result in place.
	// Returns ErrStaleStatus if the job is not running.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, result *domain.JobResult) error

	// MarkCancelled transitions a running job to cancelled.
	// Returns ErrStaleStatus if the job is not running.
	MarkCancelled(ctx context.Context, id uuid.UUID) error

	// Requeue transitions a failed job back to queued for another attempt,
	// clearing its deadline. Returns ErrStaleStatus if the job is not failed
	// or has exhausted its attempts.
	Requeue(ctx context.Context, id uuid.UUID) error

	// CancelQueued transitions a queued job directly to cancelled, so it
	// never runs. Returns true if the transition applied, false if the job
	// was no longer queued.
	CancelQueued(ctx context.Context, id uuid.UUID) (bool, error)

	// RequestCancel sets the cooperative cancellation flag on a running job.
	// Returns true if the flag was set, false if the job was not running.
	RequestCancel(ctx context.Context, id uuid.UUID) (bool, error)

	// IsCancelRequested reads the cancellation flag. Used by tasks at
	// checkpoints between expensive sub-steps.
	IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error)

	// FindByStatus retrieves jobs in the given status, oldest first.
	FindByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error)

	// FindExpiredRunning retrieves running jobs whose deadline is before now.
	FindExpiredRunning(ctx context.Context, now time.Time) ([]*domain.Job, error)

	// WithTx returns a new JobStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) JobStore
}
