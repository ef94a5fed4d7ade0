// Package notify defines the outbound notification boundary. Jobs notify
// their owner exactly once on reaching a terminal outcome; delivery is
// best-effort and never affects job state.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Outcome is the terminal job outcome reported to the user.
type Outcome string

// Reported outcomes.
const (
	OutcomeDone      Outcome = "done"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Notifier delivers a terminal-outcome notification to a user.
// Version: 1.0
type Notifier interface {
	// Notify reports the outcome of a job to its owner. An error means the
	// delivery failed; the caller may retry once but never changes job state
	// because of it.
	Notify(ctx context.Context, userID, jobID uuid.UUID, outcome Outcome) error
}

// LogNotifier is the default Notifier: it writes the notification to the
// structured log. Real delivery channels (email, webhooks) plug in behind
// the same interface.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With("component", "notifier"),
	}
}

// Notify implements Notifier.Notify
func (n *LogNotifier) Notify(ctx context.Context, userID, jobID uuid.UUID, outcome Outcome) error {
	n.logger.InfoContext(ctx, "job outcome notification",
		"user_id", userID,
		"job_id", jobID,
		"outcome", outcome)
	return nil
}

// Ensure LogNotifier implements Notifier
var _ Notifier = (*LogNotifier)(nil)
