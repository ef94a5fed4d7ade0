package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calebmoore/lessonforge-api/internal/events"
	"github.com/calebmoore/lessonforge-api/internal/store"
)

// JobEventHandler implements the events.EventHandler interface: it reacts to
// job-requested events by building the generation task and enqueueing it for
// the worker pool.
type JobEventHandler struct {
	jobs    store.JobStore
	factory TaskFactory
	queue   TaskQueueWriter
	logger  *slog.Logger
}

// NewJobEventHandler creates an event handler that loads the requested job,
// creates its task through the factory, and submits it to the queue.
func NewJobEventHandler(
	jobs store.JobStore,
	factory TaskFactory,
	queue TaskQueueWriter,
	logger *slog.Logger,
) *JobEventHandler {
	return &JobEventHandler{
		jobs:    jobs,
		factory: factory,
		queue:   queue,
		logger:  logger.With("component", "job_event_handler"),
	}
}

// HandleEvent processes a job-requested event. The job stays queued in the
// store if enqueueing fails, so startup recovery can pick it up later.
func (h *JobEventHandler) HandleEvent(ctx context.Context, event *events.JobRequestedEvent) error {
	job, err := h.jobs.GetByID(ctx, event.JobID)
	if err != nil {
		h.logger.Error("failed to load job for event",
			"error", err,
			"job_id", event.JobID,
			"event_id", event.ID)
		return fmt.Errorf("failed to load job: %w", err)
	}

	t, err := h.factory.CreateTask(job)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"job_id", event.JobID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.queue.Enqueue(t); err != nil {
		h.logger.Error("failed to enqueue task",
			"error", err,
			"job_id", event.JobID,
			"event_id", event.ID)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	h.logger.Debug("task enqueued for job",
		"job_id", event.JobID,
		"event_id", event.ID)
	return nil
}

// Ensure JobEventHandler implements events.EventHandler
var _ events.EventHandler = (*JobEventHandler)(nil)
