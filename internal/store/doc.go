// Package store defines the persistence interfaces of the orchestration
// core: the job store, the content cache, and the history ledger. All
// cross-call state lives behind these interfaces, so any worker instance is
// interchangeable. Implementations live in internal/platform.
package store
