package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/events"
	"github.com/calebmoore/lessonforge-api/internal/platform/metrics"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/google/uuid"
)

// JobRepository defines the repository interface for the service layer.
// This is aligned with store.JobStore to ensure proper separation of concerns.
type JobRepository interface {
	// Create saves a new job to the store
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// CancelQueued transitions a queued job directly to cancelled
	CancelQueued(ctx context.Context, id uuid.UUID) (bool, error)

	// RequestCancel sets the cooperative cancellation flag on a running job
	RequestCancel(ctx context.Context, id uuid.UUID) (bool, error)

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) store.JobStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// JobService provides job-related operations
type JobService interface {
	// Submit validates the request, persists a queued job, and emits the
	// job-requested event. It returns without waiting for execution.
	Submit(ctx context.Context, userID uuid.UUID, req domain.Request) (*domain.Job, error)

	// Status retrieves a snapshot of the job.
	Status(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Cancel requests cancellation of the job. A queued job is cancelled
	// outright; a running job gets the cooperative flag set; a terminal job
	// returns false with no error.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// JobServiceError wraps errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "cancel")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a new JobServiceError.
// It returns known sentinel errors directly without wrapping.
func NewJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	// Validation problems surface as-is so the API layer can map them to 400.
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err
	}
	if errors.Is(err, ErrJobNotFound) {
		return ErrJobNotFound
	}
	if errors.Is(err, store.ErrJobNotFound) {
		return ErrJobNotFound
	}

	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// jobServiceImpl implements the JobService interface
type jobServiceImpl struct {
	jobRepo      JobRepository
	eventEmitter events.EventEmitter
	metrics      *metrics.Metrics
	maxAttempts  int
	logger       *slog.Logger
}

// NewJobService creates a new JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(
	jobRepo JobRepository,
	eventEmitter events.EventEmitter,
	m *metrics.Metrics,
	maxAttempts int,
	logger *slog.Logger,
) (JobService, error) {
	if jobRepo == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "jobRepo cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobRepo:      jobRepo,
		eventEmitter: eventEmitter,
		metrics:      m,
		maxAttempts:  maxAttempts,
		logger:       logger.With("component", "job_service"),
	}, nil
}

// Submit creates a queued job for the request and emits the job-requested
// event. Validation failures create no job.
func (s *jobServiceImpl) Submit(ctx context.Context, userID uuid.UUID, req domain.Request) (*domain.Job, error) {
	job, err := domain.NewJob(userID, req, s.maxAttempts)
	if err != nil {
		s.logger.Warn("rejected invalid generation request",
			"error", err,
			"user_id", userID)
		return nil, NewJobServiceError("submit", "invalid request", err)
	}

	err = store.RunInTransaction(ctx, s.jobRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.jobRepo.WithTx(tx)
		if err := txRepo.Create(ctx, job); err != nil {
			s.logger.Error("failed to create job in transaction",
				"error", err,
				"job_id", job.ID,
				"user_id", userID)
			return NewJobServiceError("submit", "failed to save job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job submitted",
		"job_id", job.ID,
		"user_id", userID,
		"fingerprint", job.Fingerprint,
		"kinds", req.ResourceKinds)

	if s.metrics != nil {
		s.metrics.JobsSubmitted.Inc()
	}

	// Emission failure is not fatal: the job is already persisted queued and
	// startup recovery re-enqueues it.
	event := events.NewJobRequestedEvent(job.ID)
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit job-requested event, job remains queued",
			"error", err,
			"job_id", job.ID,
			"event_id", event.ID)
	}

	return job, nil
}

// Status retrieves a snapshot of the job.
func (s *jobServiceImpl) Status(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, NewJobServiceError("status", "failed to load job", err)
	}
	return job, nil
}

// Cancel requests cancellation of the job.
func (s *jobServiceImpl) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return false, NewJobServiceError("cancel", "failed to load job", err)
	}

	if job.Terminal() {
		s.logger.Debug("cancel requested for terminal job",
			"job_id", id,
			"status", job.Status)
		return false, nil
	}

	if job.Status == domain.JobStatusQueued {
		cancelled, err := s.jobRepo.CancelQueued(ctx, id)
		if err != nil {
			return false, NewJobServiceError("cancel", "failed to cancel queued job", err)
		}
		if cancelled {
			s.logger.Info("queued job cancelled", "job_id", id)
			if s.metrics != nil {
				s.metrics.JobsCompleted.WithLabelValues(string(domain.JobStatusCancelled)).Inc()
			}
			return true, nil
		}
		// The job started running between the read and the swap; fall
		// through to the cooperative flag.
	}

	flagged, err := s.jobRepo.RequestCancel(ctx, id)
	if err != nil {
		return false, NewJobServiceError("cancel", "failed to request cancellation", err)
	}
	if flagged {
		s.logger.Info("cancellation requested for running job", "job_id", id)
	}
	return flagged, nil
}
