package store

import (
	"context"
	"database/sql"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/google/uuid"
)

// HistoryStore defines the interface for the per-user activity ledger.
// Version: 1.0
type HistoryStore interface {
	// Record inserts the history record unless one already exists for the
	// same (user, fingerprint, activity date). The uniqueness guarantee is
	// enforced by a storage-level constraint, not an application pre-check,
	// so concurrent writers cannot both succeed. Returns inserted=false,
	// without error, when the record already existed.
	Record(ctx context.Context, record *domain.HistoryRecord) (inserted bool, err error)

	// ListByUser retrieves a user's history, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.HistoryRecord, error)

	// WithTx returns a new HistoryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) HistoryStore
}
