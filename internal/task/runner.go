package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/notify"
	"github.com/calebmoore/lessonforge-api/internal/platform/logger"
	"github.com/calebmoore/lessonforge-api/internal/platform/metrics"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// JobTimeout bounds a single execution attempt. The deadline is stamped
	// on the job when it is claimed; the reaper fails runs that outlive it.
	JobTimeout time.Duration

	// ReaperInterval defines how often to scan for expired running jobs
	ReaperInterval time.Duration

	// RetryBaseDelay is the base delay for the exponential retry backoff.
	// Attempt n waits RetryBaseDelay * 2^(n-1) before requeueing.
	RetryBaseDelay time.Duration

	// SweepInterval defines how often the cache eviction sweep runs.
	// Zero disables the sweep.
	SweepInterval time.Duration

	// EvictionPolicy is the retention policy applied by the sweep
	EvictionPolicy store.EvictionPolicy
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:    4,
		JobTimeout:     10 * time.Minute,
		ReaperInterval: 30 * time.Second,
		RetryBaseDelay: 5 * time.Second,
	}
}

// TaskRunner manages background job processing: it consumes the queue with a
// worker pool, claims jobs via compare-and-swap transitions, enforces
// execution deadlines, and requeues failed attempts while retries remain.
type TaskRunner struct {
	jobs       store.JobStore
	cache      store.CacheStore
	queue      *TaskQueue
	factory    TaskFactory
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	config     TaskRunnerConfig
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner.
func NewTaskRunner(
	jobs store.JobStore,
	cache store.CacheStore,
	queue *TaskQueue,
	factory TaskFactory,
	notifier notify.Notifier,
	m *metrics.Metrics,
	config TaskRunnerConfig,
	log *slog.Logger,
) *TaskRunner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultTaskRunnerConfig().WorkerCount
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultTaskRunnerConfig().JobTimeout
	}
	if config.ReaperInterval <= 0 {
		config.ReaperInterval = DefaultTaskRunnerConfig().ReaperInterval
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = DefaultTaskRunnerConfig().RetryBaseDelay
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		jobs:       jobs,
		cache:      cache,
		queue:      queue,
		factory:    factory,
		notifier:   notifier,
		metrics:    m,
		config:     config,
		logger:     log.With("component", "task_runner"),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start recovers interrupted jobs, then launches the worker pool, the
// deadline reaper, and the cache sweep.
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.deadlineReaper()

	if r.cache != nil && r.config.SweepInterval > 0 {
		r.wg.Add(1)
		go r.cacheSweeper()
	}

	return nil
}

// Stop gracefully shuts down the task runner. In-flight attempts finish;
// queued tasks stay persisted and are recovered on the next start.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.queue.Close()
	r.wg.Wait()
}

// Recover requeues work left over from a previous run: queued jobs go back
// on the in-memory queue, and jobs interrupted mid-run are failed and
// requeued while their attempts allow.
func (r *TaskRunner) Recover() error {
	ctx := logger.WithLogger(context.Background(), r.logger)

	queued, err := r.jobs.FindByStatus(ctx, domain.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to find queued jobs: %w", err)
	}

	running, err := r.jobs.FindByStatus(ctx, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to find running jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"queued_count", len(queued),
		"running_count", len(running))

	for _, job := range queued {
		r.enqueueJob(job)
	}

	// Jobs stuck in running were interrupted by a crash or restart. Fail the
	// attempt, then requeue while attempts remain.
	for _, job := range running {
		if err := r.jobs.MarkFailed(ctx, job.ID, "interrupted by restart", nil); err != nil {
			if !errors.Is(err, store.ErrStaleStatus) {
				r.logger.Error("failed to fail interrupted job",
					"job_id", job.ID,
					"error", err)
			}
			continue
		}
		r.retryOrFinish(ctx, job.ID)
	}

	return nil
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case t, ok := <-r.queue.GetChannel():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(t, id)
		}
	}
}

// processTask claims and executes a single task. Claiming is the CAS
// queued -> running transition; a lost swap means a duplicate delivery or a
// cancellation won, and the task is skipped without error.
func (r *TaskRunner) processTask(t Task, workerID int) {
	log := r.logger.With(
		"job_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)
	ctx := logger.WithLogger(context.Background(), log)

	deadline := time.Now().UTC().Add(r.config.JobTimeout)
	if err := r.jobs.MarkRunning(ctx, t.ID(), deadline); err != nil {
		switch {
		case errors.Is(err, store.ErrStaleStatus):
			log.Debug("skipping task, job no longer queued")
		case errors.Is(err, store.ErrJobNotFound):
			log.Warn("skipping task, job does not exist")
		default:
			log.Error("failed to claim job", "error", err)
		}
		return
	}

	log.Info("processing job")

	execCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if err := t.Execute(execCtx); err != nil {
		log.Error("job attempt failed", "error", err)
		r.failAttempt(ctx, t.ID(), err.Error())
	}
}

// failAttempt applies the running -> failed transition and then the retry
// policy.
func (r *TaskRunner) failAttempt(ctx context.Context, id uuid.UUID, message string) {
	if err := r.jobs.MarkFailed(ctx, id, message, nil); err != nil {
		if !errors.Is(err, store.ErrStaleStatus) {
			r.logger.Error("failed to mark job failed",
				"job_id", id,
				"error", err)
		}
		return
	}
	r.retryOrFinish(ctx, id)
}

// retryOrFinish schedules a retry for a failed job while attempts remain,
// and otherwise finalizes the failure.
func (r *TaskRunner) retryOrFinish(ctx context.Context, id uuid.UUID) {
	job, err := r.jobs.GetByID(ctx, id)
	if err != nil {
		r.logger.Error("failed to load job for retry decision",
			"job_id", id,
			"error", err)
		return
	}

	if !job.CanRetry() {
		r.logger.Warn("job exhausted its attempts",
			"job_id", id,
			"attempts", job.Attempts,
			"max_attempts", job.MaxAttempts)
		if r.metrics != nil {
			r.metrics.JobsCompleted.WithLabelValues(string(domain.JobStatusFailed)).Inc()
		}
		if r.notifier != nil {
			if err := r.notifier.Notify(ctx, job.UserID, job.ID, notify.OutcomeFailed); err != nil {
				r.logger.Warn("failure notification not delivered",
					"job_id", id,
					"error", err)
			}
		}
		return
	}

	// delay = base * 2^(attempts-1)
	exponent := job.Attempts - 1
	if exponent < 0 {
		exponent = 0
	}
	delay := r.config.RetryBaseDelay << uint(exponent)
	r.logger.Info("scheduling retry",
		"job_id", id,
		"attempt", job.Attempts,
		"delay", delay)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case <-r.ctx.Done():
			// Shutdown: the job stays failed with attempts remaining and is
			// requeued by recovery on the next start.
			return
		case <-time.After(delay):
		}

		retryCtx := logger.WithLogger(context.Background(), r.logger)
		if err := r.jobs.Requeue(retryCtx, id); err != nil {
			if !errors.Is(err, store.ErrStaleStatus) {
				r.logger.Error("failed to requeue job",
					"job_id", id,
					"error", err)
			}
			return
		}
		if r.metrics != nil {
			r.metrics.JobRetries.Inc()
		}

		fresh, err := r.jobs.GetByID(retryCtx, id)
		if err != nil {
			r.logger.Error("failed to load requeued job",
				"job_id", id,
				"error", err)
			return
		}
		r.enqueueJob(fresh)
	}()
}

// enqueueJob builds the task for a queued job and puts it on the queue.
func (r *TaskRunner) enqueueJob(job *domain.Job) {
	t, err := r.factory.CreateTask(job)
	if err != nil {
		r.logger.Error("failed to create task for job",
			"job_id", job.ID,
			"error", err)
		return
	}
	if err := r.queue.Enqueue(t); err != nil {
		// The job stays queued in the store and is picked up by the next
		// recovery pass.
		r.logger.Error("failed to enqueue job, leaving it queued",
			"job_id", job.ID,
			"error", err)
	}
}

// deadlineReaper periodically fails running jobs whose deadline has passed
// and applies the retry policy to them.
func (r *TaskRunner) deadlineReaper() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := logger.WithLogger(context.Background(), r.logger)

			expired, err := r.jobs.FindExpiredRunning(ctx, time.Now().UTC())
			if err != nil {
				r.logger.Error("failed to scan for expired jobs", "error", err)
				continue
			}
			if len(expired) == 0 {
				continue
			}

			r.logger.Info("found expired running jobs", "count", len(expired))
			for _, job := range expired {
				r.failAttempt(ctx, job.ID, "execution deadline exceeded")
			}
		}
	}
}

// cacheSweeper periodically applies the eviction policy to the content cache.
func (r *TaskRunner) cacheSweeper() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := logger.WithLogger(context.Background(), r.logger)

			deleted, err := r.cache.EvictSweep(ctx, r.config.EvictionPolicy)
			if err != nil {
				r.logger.Error("cache eviction sweep failed", "error", err)
				continue
			}
			if r.metrics != nil && deleted > 0 {
				r.metrics.CacheEvictions.Add(float64(deleted))
			}
		}
	}
}
