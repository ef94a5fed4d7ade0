package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calebmoore/lessonforge-api/internal/coordinator"
	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/notify"
	"github.com/calebmoore/lessonforge-api/internal/platform/metrics"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilJob         = errors.New("job cannot be nil")
	ErrNilJobStore    = errors.New("job store cannot be nil")
	ErrNilCoordinator = errors.New("coordinator cannot be nil")
	ErrNilNotifier    = errors.New("notifier cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
)

// GenerationTask implements the Task interface for executing one resource
// generation job through the coordinator.
type GenerationTask struct {
	job      *domain.Job
	jobs     store.JobStore
	history  store.HistoryStore
	coord    *coordinator.Coordinator
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGenerationTask creates a task that executes the given job.
func NewGenerationTask(
	job *domain.Job,
	jobs store.JobStore,
	history store.HistoryStore,
	coord *coordinator.Coordinator,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*GenerationTask, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	if jobs == nil {
		return nil, ErrNilJobStore
	}
	if coord == nil {
		return nil, ErrNilCoordinator
	}
	if notifier == nil {
		return nil, ErrNilNotifier
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &GenerationTask{
		job:      job,
		jobs:     jobs,
		history:  history,
		coord:    coord,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With("task_type", TaskTypeGeneration, "job_id", job.ID),
	}, nil
}

// ID returns the ID of the job this task executes
func (t *GenerationTask) ID() uuid.UUID {
	return t.job.ID
}

// Type returns the task type identifier
func (t *GenerationTask) Type() string {
	return TaskTypeGeneration
}

// Execute runs the generation job. The runner has already claimed the job
// (queued -> running); this method owns the done, cancelled, and
// quorum-failure transitions and returns an error only when the attempt
// failed and the runner should apply the retry policy.
func (t *GenerationTask) Execute(ctx context.Context) error {
	t.logger.Info("starting generation task",
		"kinds", t.job.Request.ResourceKinds,
		"topic", t.job.Request.Topic,
		"attempt", t.job.Attempts)

	cancelled := func(ctx context.Context) (bool, error) {
		return t.jobs.IsCancelRequested(ctx, t.job.ID)
	}

	result, err := t.coord.Execute(ctx, t.job.Request, cancelled)
	if err != nil {
		if errors.Is(err, coordinator.ErrCancelled) {
			return t.finishCancelled(ctx)
		}

		var quorumErr *coordinator.QuorumNotMetError
		if errors.As(err, &quorumErr) {
			return t.finishQuorumFailure(ctx, result, quorumErr)
		}
		return err
	}

	if err := t.jobs.MarkDone(ctx, t.job.ID, result); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			// Another actor (reaper, cancel) advanced the job while the work
			// finished. Their transition wins; the cached payloads remain
			// available for the next request.
			t.logger.Warn("job advanced concurrently, discarding completed attempt")
			return nil
		}
		return fmt.Errorf("failed to mark job done: %w", err)
	}

	t.recordHistory(ctx, result)
	t.notifyOnce(ctx, notify.OutcomeDone)

	if t.metrics != nil {
		t.metrics.JobsCompleted.WithLabelValues(string(domain.JobStatusDone)).Inc()
	}
	t.logger.Info("generation task completed",
		"succeeded", result.Succeeded(),
		"total", len(result.Items))
	return nil
}

// finishQuorumFailure finalizes a run that fell below the success quorum.
// Partial failure below quorum is terminal, not retried: the per-item
// outcomes are persisted with the failure so callers can see which kinds
// succeeded and which payloads remain cached.
func (t *GenerationTask) finishQuorumFailure(
	ctx context.Context,
	result *domain.JobResult,
	quorumErr *coordinator.QuorumNotMetError,
) error {
	message := fmt.Sprintf("%s: %s", quorumErr.Error(), itemFailureSummary(result))
	if err := t.jobs.MarkFailed(ctx, t.job.ID, message, result); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			t.logger.Warn("job advanced concurrently, discarding quorum failure")
			return nil
		}
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	t.notifyOnce(ctx, notify.OutcomeFailed)
	if t.metrics != nil {
		t.metrics.JobsCompleted.WithLabelValues(string(domain.JobStatusFailed)).Inc()
	}
	t.logger.Warn("generation quorum not met",
		"succeeded", quorumErr.Succeeded,
		"required", quorumErr.Required)
	return nil
}

// finishCancelled applies the running -> cancelled transition after a
// checkpoint observed the cancellation flag.
func (t *GenerationTask) finishCancelled(ctx context.Context) error {
	if err := t.jobs.MarkCancelled(ctx, t.job.ID); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			t.logger.Warn("job advanced concurrently during cancellation")
			return nil
		}
		return fmt.Errorf("failed to mark job cancelled: %w", err)
	}

	t.notifyOnce(ctx, notify.OutcomeCancelled)
	if t.metrics != nil {
		t.metrics.JobsCompleted.WithLabelValues(string(domain.JobStatusCancelled)).Inc()
	}
	t.logger.Info("generation task cancelled")
	return nil
}

// recordHistory writes one ledger entry per completed item. The storage
// constraint deduplicates repeat activity within the same day; failures are
// logged and never affect the job outcome.
func (t *GenerationTask) recordHistory(ctx context.Context, result *domain.JobResult) {
	if t.history == nil {
		return
	}

	for _, item := range result.Items {
		if item.Status != domain.ItemStatusDone {
			continue
		}

		// Each item is ledgered under its own per-kind fingerprint, the same
		// digest its payload is cached under. Keying on the job fingerprint
		// would collapse every kind of a multi-path job into one daily row.
		record, err := domain.NewHistoryRecord(
			t.job.UserID,
			item.PayloadRef,
			item.Kind,
			string(item.PayloadRef),
		)
		if err != nil {
			t.logger.Error("failed to build history record",
				"kind", item.Kind,
				"error", err)
			continue
		}

		inserted, err := t.history.Record(ctx, record)
		if err != nil {
			t.logger.Error("failed to record history entry",
				"kind", item.Kind,
				"error", err)
			continue
		}
		if !inserted {
			t.logger.Debug("history entry already recorded today",
				"kind", item.Kind)
		}
	}
}

// notifyOnce delivers the terminal notification, retrying once on failure.
// Delivery problems are logged and never revert job state.
func (t *GenerationTask) notifyOnce(ctx context.Context, outcome notify.Outcome) {
	err := t.notifier.Notify(ctx, t.job.UserID, t.job.ID, outcome)
	if err == nil {
		return
	}
	t.logger.Warn("notification delivery failed, retrying once",
		"outcome", outcome,
		"error", err)

	if err := t.notifier.Notify(ctx, t.job.UserID, t.job.ID, outcome); err != nil {
		t.logger.Error("notification delivery failed after retry",
			"outcome", outcome,
			"error", err)
	}
}

func itemFailureSummary(result *domain.JobResult) string {
	if result == nil {
		return "no item results"
	}

	var parts []string
	for _, item := range result.Items {
		if item.Status == domain.ItemStatusFailed {
			parts = append(parts, fmt.Sprintf("%s: %s", item.Kind, item.Error))
		}
	}
	if len(parts) == 0 {
		return "no failed items"
	}
	return strings.Join(parts, "; ")
}

// GenerationTaskFactory builds GenerationTasks for persisted jobs. The event
// handler and the startup recovery path both go through it.
type GenerationTaskFactory struct {
	jobs     store.JobStore
	history  store.HistoryStore
	coord    *coordinator.Coordinator
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGenerationTaskFactory creates a factory with the task collaborators.
func NewGenerationTaskFactory(
	jobs store.JobStore,
	history store.HistoryStore,
	coord *coordinator.Coordinator,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *GenerationTaskFactory {
	return &GenerationTaskFactory{
		jobs:     jobs,
		history:  history,
		coord:    coord,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// CreateTask implements TaskFactory.CreateTask
func (f *GenerationTaskFactory) CreateTask(job *domain.Job) (Task, error) {
	return NewGenerationTask(job, f.jobs, f.history, f.coord, f.notifier, f.metrics, f.logger)
}

// Ensure GenerationTaskFactory implements TaskFactory
var _ TaskFactory = (*GenerationTaskFactory)(nil)
