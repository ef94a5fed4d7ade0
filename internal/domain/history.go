package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// HistoryRecord validation errors.
var (
	ErrEmptyHistoryUserID      = errors.New("history record user ID cannot be empty")
	ErrEmptyHistoryFingerprint = errors.New("history record fingerprint cannot be empty")
	ErrEmptyHistoryPayloadRef  = errors.New("history record payload ref cannot be empty")
)

// HistoryRecord is one completed-generation entry in a user's activity
// ledger. At most one record exists per (user, fingerprint, activity date);
// the constraint is enforced by the storage layer, not by callers.
type HistoryRecord struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	Fingerprint  Fingerprint  `json:"fingerprint"`
	ResourceKind ResourceKind `json:"resource_kind"`
	PayloadRef   string       `json:"payload_ref"`
	ActivityDate time.Time    `json:"activity_date"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewHistoryRecord creates a HistoryRecord dated today (UTC).
func NewHistoryRecord(
	userID uuid.UUID,
	fingerprint Fingerprint,
	kind ResourceKind,
	payloadRef string,
) (*HistoryRecord, error) {
	now := time.Now().UTC()
	rec := &HistoryRecord{
		ID:           uuid.New(),
		UserID:       userID,
		Fingerprint:  fingerprint,
		ResourceKind: kind,
		PayloadRef:   payloadRef,
		ActivityDate: now.Truncate(24 * time.Hour),
		CreatedAt:    now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks if the HistoryRecord has valid data.
func (r *HistoryRecord) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrEmptyHistoryUserID
	}
	if r.Fingerprint == "" {
		return ErrEmptyHistoryFingerprint
	}
	if r.PayloadRef == "" {
		return ErrEmptyHistoryPayloadRef
	}
	if _, err := ParseResourceKind(string(r.ResourceKind)); err != nil {
		return err
	}
	return nil
}
