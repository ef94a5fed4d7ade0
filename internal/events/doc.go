// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose
// coupling between components in the system. The job service emits a
// JobRequestedEvent when a generation job is accepted, without knowing which
// handlers will process it; the task layer registers a handler that turns the
// event into queued background work.
package events
