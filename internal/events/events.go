package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobRequestedEvent announces that a generation job has been persisted in the
// queued state and is ready for asynchronous execution.
type JobRequestedEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// JobID identifies the persisted job to execute
	JobID uuid.UUID `json:"job_id"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewJobRequestedEvent creates a new JobRequestedEvent for the given job.
func NewJobRequestedEvent(jobID uuid.UUID) *JobRequestedEvent {
	return &JobRequestedEvent{
		ID:        uuid.New(),
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobRequestedEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *JobRequestedEvent) error
}
