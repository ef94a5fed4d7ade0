package service

import (
	"database/sql"

	"github.com/calebmoore/lessonforge-api/internal/store"
)

// JobRepositoryAdapter adapts a store.JobStore to the service-layer
// JobRepository interface, adding access to the underlying database handle
// so the service can open transactions.
type JobRepositoryAdapter struct {
	store.JobStore
	db *sql.DB
}

// NewJobRepositoryAdapter creates a new adapter that implements JobRepository
// by delegating to a store.JobStore implementation.
func NewJobRepositoryAdapter(jobStore store.JobStore, db *sql.DB) *JobRepositoryAdapter {
	return &JobRepositoryAdapter{
		JobStore: jobStore,
		db:       db,
	}
}

// DB returns the underlying database connection
func (a *JobRepositoryAdapter) DB() *sql.DB {
	return a.db
}

// Ensure JobRepositoryAdapter implements JobRepository
var _ JobRepository = (*JobRepositoryAdapter)(nil)
