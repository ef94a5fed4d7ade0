package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewHistoryRecord(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	fp := Fingerprint("a1b2c3")

	rec, err := NewHistoryRecord(userID, fp, ResourceKindQuiz, "payload-ref")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.ID == uuid.Nil {
		t.Error("Expected non-nil record ID")
	}
	if rec.UserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, rec.UserID)
	}
	if rec.Fingerprint != fp {
		t.Errorf("Expected fingerprint %s, got %s", fp, rec.Fingerprint)
	}

	// ActivityDate carries no time-of-day component.
	if !rec.ActivityDate.Equal(rec.ActivityDate.Truncate(24 * time.Hour)) {
		t.Errorf("Expected activity date truncated to the day, got %v", rec.ActivityDate)
	}
}

func TestHistoryRecordValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*HistoryRecord)
		wantErr error
	}{
		{
			name:    "empty user ID",
			mutate:  func(r *HistoryRecord) { r.UserID = uuid.Nil },
			wantErr: ErrEmptyHistoryUserID,
		},
		{
			name:    "empty fingerprint",
			mutate:  func(r *HistoryRecord) { r.Fingerprint = "" },
			wantErr: ErrEmptyHistoryFingerprint,
		},
		{
			name:    "empty payload ref",
			mutate:  func(r *HistoryRecord) { r.PayloadRef = "" },
			wantErr: ErrEmptyHistoryPayloadRef,
		},
		{
			name:    "unknown resource kind",
			mutate:  func(r *HistoryRecord) { r.ResourceKind = "poster" },
			wantErr: ErrUnknownResourceKind,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := &HistoryRecord{
				ID:           uuid.New(),
				UserID:       uuid.New(),
				Fingerprint:  "a1b2c3",
				ResourceKind: ResourceKindQuiz,
				PayloadRef:   "payload-ref",
			}
			tc.mutate(rec)
			if err := rec.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}
