package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/platform/logger"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/google/uuid"
)

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db: tx,
	}
}

const jobColumns = `id, user_id, request, fingerprint, status, attempts, max_attempts,
	result, error_message, cancel_requested, deadline, created_at, updated_at`

// Create implements store.JobStore.Create
// It validates the job before storing it and serializes the request and
// result to JSONB.
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContext(ctx)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			"error", err,
			"job_id", job.ID)
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal job request: %w", err)
	}

	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, user_id, request, fingerprint, status, attempts, max_attempts,
			result, error_message, cancel_requested, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		requestJSON,
		job.Fingerprint,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		resultJSON,
		job.ErrorMessage,
		job.CancelRequested,
		job.Deadline,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create job",
			"error", err,
			"job_id", job.ID)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.JobStore.GetByID
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrJobNotFound
		}
		return nil, MapError(err)
	}

	return job, nil
}

// MarkRunning implements store.JobStore.MarkRunning
// The status predicate in the WHERE clause makes the claim a compare-and-swap:
// of two workers receiving the same queue delivery, only one sees a row update.
func (s *PostgresJobStore) MarkRunning(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1, attempts = attempts + 1, deadline = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	return s.casTransition(ctx, id, query,
		domain.JobStatusRunning, deadline, time.Now().UTC(), id, domain.JobStatusQueued)
}

// MarkDone implements store.JobStore.MarkDone
func (s *PostgresJobStore) MarkDone(ctx context.Context, id uuid.UUID, result *domain.JobResult) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET status = $1, result = $2, error_message = '', deadline = NULL, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	return s.casTransition(ctx, id, query,
		domain.JobStatusDone, resultJSON, time.Now().UTC(), id, domain.JobStatusRunning)
}

// MarkFailed implements store.JobStore.MarkFailed
// COALESCE keeps an earlier attempt's result visible when the failure carries
// no partial outcome of its own (timeouts, restarts).
func (s *PostgresJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, result *domain.JobResult) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, result = COALESCE($3, result), deadline = NULL, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	return s.casTransition(ctx, id, query,
		domain.JobStatusFailed, errorMessage, resultJSON, time.Now().UTC(), id, domain.JobStatusRunning)
}

// MarkCancelled implements store.JobStore.MarkCancelled
func (s *PostgresJobStore) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, deadline = NULL, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	return s.casTransition(ctx, id, query,
		domain.JobStatusCancelled, time.Now().UTC(), id, domain.JobStatusRunning)
}

// Requeue implements store.JobStore.Requeue
// The attempts predicate keeps exhausted jobs failed even if two reapers race
// on the same job.
func (s *PostgresJobStore) Requeue(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, deadline = NULL, updated_at = $2
		WHERE id = $3 AND status = $4 AND attempts < max_attempts
	`
	return s.casTransition(ctx, id, query,
		domain.JobStatusQueued, time.Now().UTC(), id, domain.JobStatusFailed)
}

// CancelQueued implements store.JobStore.CancelQueued
func (s *PostgresJobStore) CancelQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1, cancel_requested = TRUE, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCancelled, time.Now().UTC(), id, domain.JobStatusQueued)
	if err != nil {
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// RequestCancel implements store.JobStore.RequestCancel
func (s *PostgresJobStore) RequestCancel(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET cancel_requested = TRUE, updated_at = $1
		WHERE id = $2 AND status = $3
	`
	result, err := s.db.ExecContext(ctx, query,
		time.Now().UTC(), id, domain.JobStatusRunning)
	if err != nil {
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// IsCancelRequested implements store.JobStore.IsCancelRequested
func (s *PostgresJobStore) IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT cancel_requested FROM jobs WHERE id = $1`

	var requested bool
	err := s.db.QueryRowContext(ctx, query, id).Scan(&requested)
	if err != nil {
		if IsNotFoundError(err) {
			return false, store.ErrJobNotFound
		}
		return false, MapError(err)
	}
	return requested, nil
}

// FindByStatus implements store.JobStore.FindByStatus
func (s *PostgresJobStore) FindByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at ASC`
	return s.queryJobs(ctx, query, status)
}

// FindExpiredRunning implements store.JobStore.FindExpiredRunning
func (s *PostgresJobStore) FindExpiredRunning(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1 AND deadline IS NOT NULL AND deadline < $2
		ORDER BY created_at ASC`
	return s.queryJobs(ctx, query, domain.JobStatusRunning, now)
}

// casTransition executes a compare-and-swap status update. When the swap
// touches no row it distinguishes a missing job (ErrJobNotFound) from a job
// that another worker already advanced (ErrStaleStatus).
func (s *PostgresJobStore) casTransition(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to execute job status transition",
			"job_id", id,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrJobNotFound
	}

	log.Debug("job status transition lost compare-and-swap",
		"job_id", id)
	return store.ErrStaleStatus
}

func (s *PostgresJobStore) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*domain.Job, error) {
	log := logger.FromContext(ctx)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs",
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		requestJSON  []byte
		resultJSON   []byte
		errorMessage sql.NullString
		deadline     sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&requestJSON,
		&job.Fingerprint,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&resultJSON,
		&errorMessage,
		&job.CancelRequested,
		&deadline,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requestJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job request: %w", err)
	}
	if len(resultJSON) > 0 {
		var result domain.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
		job.Result = &result
	}
	job.ErrorMessage = errorMessage.String
	if deadline.Valid {
		t := deadline.Time
		job.Deadline = &t
	}

	return &job, nil
}

func marshalResult(result *domain.JobResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job result: %w", err)
	}
	return data, nil
}
