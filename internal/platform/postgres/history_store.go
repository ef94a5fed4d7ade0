package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/platform/logger"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/google/uuid"
)

// PostgresHistoryStore implements the store.HistoryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresHistoryStore struct {
	db store.DBTX
}

// NewPostgresHistoryStore creates a new PostgreSQL implementation of the HistoryStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
func NewPostgresHistoryStore(db store.DBTX) *PostgresHistoryStore {
	return &PostgresHistoryStore{
		db: db,
	}
}

// Ensure PostgresHistoryStore implements store.HistoryStore interface
var _ store.HistoryStore = (*PostgresHistoryStore)(nil)

// WithTx implements store.HistoryStore.WithTx
func (s *PostgresHistoryStore) WithTx(tx *sql.Tx) store.HistoryStore {
	return &PostgresHistoryStore{
		db: tx,
	}
}

// Record implements store.HistoryStore.Record
// Daily dedup rides on the UNIQUE (user_id, fingerprint, activity_date)
// constraint: ON CONFLICT DO NOTHING makes the insert idempotent, and the
// rows-affected count distinguishes a fresh insert from a duplicate.
func (s *PostgresHistoryStore) Record(ctx context.Context, record *domain.HistoryRecord) (bool, error) {
	log := logger.FromContext(ctx)

	if err := record.Validate(); err != nil {
		log.Warn("history record validation failed",
			"error", err,
			"record_id", record.ID)
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO history_records (id, user_id, fingerprint, resource_kind, payload_ref, activity_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, fingerprint, activity_date) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Fingerprint,
		record.ResourceKind,
		record.PayloadRef,
		record.ActivityDate,
		record.CreatedAt,
	)
	if err != nil {
		log.Error("failed to record history entry",
			"error", err,
			"user_id", record.UserID)
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListByUser implements store.HistoryStore.ListByUser
func (s *PostgresHistoryStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.HistoryRecord, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, fingerprint, resource_kind, payload_ref, activity_date, created_at
		FROM history_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query history records",
			"error", err,
			"user_id", userID)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.HistoryRecord
	for rows.Next() {
		var record domain.HistoryRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Fingerprint,
			&record.ResourceKind,
			&record.PayloadRef,
			&record.ActivityDate,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return records, nil
}
