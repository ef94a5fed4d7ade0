package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
)

// EvictionPolicy is the tunable retention policy for the cache sweep.
// An entry is deleted only when it matches all three conditions: older than
// Retention, unused for at least UnusedFor, and at or below MaxUseCount.
// Popular entries survive regardless of age.
type EvictionPolicy struct {
	Retention   time.Duration
	UnusedFor   time.Duration
	MaxUseCount int64
}

// CacheStore defines the interface for the content-addressable cache.
// Version: 1.0
type CacheStore interface {
	// Lookup returns the cached payload for the fingerprint. A hit atomically
	// touches the entry (use_count++, last_used_at=now) in the same statement,
	// so concurrent touches and inserts on the same key never interleave.
	// A miss returns found=false with no error.
	Lookup(ctx context.Context, fingerprint domain.Fingerprint) (payload json.RawMessage, found bool, err error)

	// StoreIfAbsent atomically inserts the payload, or returns the existing
	// one when another writer won the race. At most one payload is ever
	// stored per fingerprint; losers receive the winner's payload and
	// wasNew=false, never an error.
	StoreIfAbsent(ctx context.Context, fingerprint domain.Fingerprint, payload json.RawMessage) (stored json.RawMessage, wasNew bool, err error)

	// EvictSweep deletes entries matching the policy and returns the number
	// deleted. Safe to call concurrently with lookups and stores.
	EvictSweep(ctx context.Context, policy EvictionPolicy) (int64, error)

	// WithTx returns a new CacheStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CacheStore
}
