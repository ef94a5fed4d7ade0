package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifierWritesStructuredEntry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	notifier := NewLogNotifier(logger)

	userID := uuid.New()
	jobID := uuid.New()

	require.NoError(t, notifier.Notify(context.Background(), userID, jobID, OutcomeDone))

	out := buf.String()
	assert.Contains(t, out, userID.String())
	assert.Contains(t, out, jobID.String())
	assert.Contains(t, out, string(OutcomeDone))
}
