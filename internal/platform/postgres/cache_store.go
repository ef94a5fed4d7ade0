package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/platform/logger"
	"github.com/calebmoore/lessonforge-api/internal/store"
)

// PostgresCacheStore implements the store.CacheStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCacheStore struct {
	db store.DBTX
}

// NewPostgresCacheStore creates a new PostgreSQL implementation of the CacheStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
func NewPostgresCacheStore(db store.DBTX) *PostgresCacheStore {
	return &PostgresCacheStore{
		db: db,
	}
}

// Ensure PostgresCacheStore implements store.CacheStore interface
var _ store.CacheStore = (*PostgresCacheStore)(nil)

// WithTx implements store.CacheStore.WithTx
func (s *PostgresCacheStore) WithTx(tx *sql.Tx) store.CacheStore {
	return &PostgresCacheStore{
		db: tx,
	}
}

// Lookup implements store.CacheStore.Lookup
// The touch and the read happen in one UPDATE ... RETURNING statement, so a
// hit always reflects its own use in use_count and last_used_at.
func (s *PostgresCacheStore) Lookup(ctx context.Context, fingerprint domain.Fingerprint) (json.RawMessage, bool, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE content_cache
		SET use_count = use_count + 1, last_used_at = $1
		WHERE fingerprint = $2
		RETURNING payload
	`

	var payload json.RawMessage
	err := s.db.QueryRowContext(ctx, query, time.Now().UTC(), fingerprint).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		log.Error("failed to look up cache entry",
			"fingerprint", fingerprint,
			"error", err)
		return nil, false, MapError(err)
	}

	return payload, true, nil
}

// StoreIfAbsent implements store.CacheStore.StoreIfAbsent
// The INSERT ... ON CONFLICT DO NOTHING resolves concurrent writers at the
// unique index: exactly one insert succeeds and the loser rereads the
// winner's payload. The reread is retried once because the eviction sweep
// may delete the winning row in the gap between the two statements.
func (s *PostgresCacheStore) StoreIfAbsent(ctx context.Context, fingerprint domain.Fingerprint, payload json.RawMessage) (json.RawMessage, bool, error) {
	log := logger.FromContext(ctx)

	insert := `
		INSERT INTO content_cache (fingerprint, payload, use_count, created_at, last_used_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING payload
	`
	read := `SELECT payload FROM content_cache WHERE fingerprint = $1`

	for attempt := 0; attempt < 2; attempt++ {
		var stored json.RawMessage
		err := s.db.QueryRowContext(ctx, insert, fingerprint, payload, time.Now().UTC()).
			Scan(&stored)
		if err == nil {
			return stored, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to store cache entry",
				"fingerprint", fingerprint,
				"error", err)
			return nil, false, MapError(err)
		}

		// Conflict: another writer owns the fingerprint. Return its payload.
		err = s.db.QueryRowContext(ctx, read, fingerprint).Scan(&stored)
		if err == nil {
			return stored, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, MapError(err)
		}
		// The winning row vanished between statements; insert again.
	}

	return nil, false, fmt.Errorf("%w: entry for fingerprint %s kept disappearing",
		store.ErrCacheEntryNotFound, fingerprint)
}

// EvictSweep implements store.CacheStore.EvictSweep
// A single DELETE applies all three policy conditions, so the sweep never
// races with a concurrent touch on the same row: the touch either commits
// first and disqualifies the row, or waits for the delete.
func (s *PostgresCacheStore) EvictSweep(ctx context.Context, policy store.EvictionPolicy) (int64, error) {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()
	query := `
		DELETE FROM content_cache
		WHERE created_at < $1 AND last_used_at < $2 AND use_count <= $3
	`

	result, err := s.db.ExecContext(ctx, query,
		now.Add(-policy.Retention),
		now.Add(-policy.UnusedFor),
		policy.MaxUseCount,
	)
	if err != nil {
		log.Error("cache eviction sweep failed",
			"error", err)
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		log.Info("cache eviction sweep completed",
			"deleted", deleted)
	}
	return deleted, nil
}
