package task

import (
	"context"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/google/uuid"
)

// Task type constants
const (
	// TaskTypeGeneration represents the task type for resource generation jobs
	TaskTypeGeneration = "resource_generation"
)

// Task represents a unit of background work to be processed.
// A task's ID is the ID of the job it executes, so the runner can drive the
// job's status transitions without knowing the task's internals.
// Version: 1.0
type Task interface {
	// ID returns the ID of the job this task executes
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic. It owns the done/cancelled transitions of
	// its job; a returned error means the attempt failed and the runner
	// applies the failure and retry policy.
	Execute(ctx context.Context) error
}

// TaskFactory creates the executable task for a persisted job. It exists so
// the event handler and the recovery path can build tasks without depending
// on the task's collaborator set.
// Version: 1.0
type TaskFactory interface {
	// CreateTask builds a Task that will execute the given job.
	CreateTask(job *domain.Job) (Task, error)
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
// Version: 1.0
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
// Version: 1.0
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error
}
