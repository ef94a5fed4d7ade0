// Package task implements the background job execution machinery: a buffered
// in-memory queue, a worker pool that claims jobs with compare-and-swap
// status transitions, a deadline reaper for expired runs, bounded retries
// with exponential backoff, and the generation task itself.
package task
