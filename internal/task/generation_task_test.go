package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerationTaskValidation(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	coord := newTestCoordinator(&stubGenerator{}, newStubCache())
	notifier := &fakeNotifier{}
	log := discardLogger()

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)

	tests := []struct {
		name    string
		build   func() (*GenerationTask, error)
		wantErr error
	}{
		{
			name: "nil job",
			build: func() (*GenerationTask, error) {
				return NewGenerationTask(nil, jobs, nil, coord, notifier, nil, log)
			},
			wantErr: ErrNilJob,
		},
		{
			name: "nil job store",
			build: func() (*GenerationTask, error) {
				return NewGenerationTask(job, nil, nil, coord, notifier, nil, log)
			},
			wantErr: ErrNilJobStore,
		},
		{
			name: "nil coordinator",
			build: func() (*GenerationTask, error) {
				return NewGenerationTask(job, jobs, nil, nil, notifier, nil, log)
			},
			wantErr: ErrNilCoordinator,
		},
		{
			name: "nil notifier",
			build: func() (*GenerationTask, error) {
				return NewGenerationTask(job, jobs, nil, coord, nil, nil, log)
			},
			wantErr: ErrNilNotifier,
		},
		{
			name: "nil logger",
			build: func() (*GenerationTask, error) {
				return NewGenerationTask(job, jobs, nil, coord, notifier, nil, nil)
			},
			wantErr: ErrNilLogger,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.build()
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// History store is optional.
	task, err := NewGenerationTask(job, jobs, nil, coord, notifier, nil, log)
	require.NoError(t, err)
	assert.Equal(t, job.ID, task.ID())
	assert.Equal(t, TaskTypeGeneration, task.Type())
}

func TestGenerationTaskExecuteSuccess(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	history := &fakeHistoryStore{}
	notifier := &fakeNotifier{}
	gen := &stubGenerator{}
	coord := newTestCoordinator(gen, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz", "worksheet")
	require.NoError(t, err)
	jobs.put(job)

	task, err := NewGenerationTask(job, jobs, history, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))

	stored := jobs.get(job.ID)
	assert.Equal(t, domain.JobStatusDone, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, 2, stored.Result.Succeeded())
	assert.Empty(t, stored.ErrorMessage)

	// One ledger entry per completed kind, one done notification. The two
	// kinds share a job fingerprint but ledger under their own per-kind
	// digests, so the daily dedup constraint never collapses them.
	assert.Equal(t, 2, history.count())
	recorded, err := history.ListByUser(context.Background(), job.UserID, 10, 0)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.NotEqual(t, recorded[0].Fingerprint, recorded[1].Fingerprint)
	for _, rec := range recorded {
		assert.Equal(t, string(rec.Fingerprint), rec.PayloadRef)
	}
	assert.Equal(t, []notify.Outcome{notify.OutcomeDone}, notifier.outcomes())
}

func TestGenerationTaskExecuteCachedResult(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	notifier := &fakeNotifier{}
	gen := &stubGenerator{}
	cache := newStubCache()
	coord := newTestCoordinator(gen, cache)

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)
	jobs.put(job)

	sub := job.Request.ForKind(domain.ResourceKindQuiz, false)
	cache.entries[sub.Fingerprint()] = json.RawMessage(`{"topic":"cached"}`)

	task, err := NewGenerationTask(job, jobs, nil, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))

	stored := jobs.get(job.ID)
	assert.Equal(t, domain.JobStatusDone, stored.Status)
	require.Len(t, stored.Result.Items, 1)
	assert.True(t, stored.Result.Items[0].Cached)
	assert.Zero(t, gen.callCount(), "cache hit must not call the generator")
}

func TestGenerationTaskExecuteCancelled(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	history := &fakeHistoryStore{}
	notifier := &fakeNotifier{}
	coord := newTestCoordinator(&stubGenerator{}, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)
	job.CancelRequested = true
	jobs.put(job)

	task, err := NewGenerationTask(job, jobs, history, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))

	stored := jobs.get(job.ID)
	assert.Equal(t, domain.JobStatusCancelled, stored.Status)
	assert.Zero(t, history.count(), "cancelled job must not write history")
	assert.Equal(t, []notify.Outcome{notify.OutcomeCancelled}, notifier.outcomes())
}

func TestGenerationTaskExecuteQuorumFailure(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	notifier := &fakeNotifier{}
	gen := &stubGenerator{
		err:      errors.New("model unavailable"),
		failKind: domain.ResourceKindWorksheet,
	}
	coord := newTestCoordinator(gen, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz", "worksheet")
	require.NoError(t, err)
	jobs.put(job)

	task, err := NewGenerationTask(job, jobs, nil, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	// Below-quorum failure is terminal: the task finalizes the job itself
	// instead of handing the error back for another attempt.
	require.NoError(t, task.Execute(context.Background()))

	stored := jobs.get(job.ID)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "quorum not met")
	assert.Contains(t, stored.ErrorMessage, "worksheet: model unavailable")

	// The partial per-item outcome is persisted with the failure.
	require.NotNil(t, stored.Result)
	require.Len(t, stored.Result.Items, 2)
	assert.Equal(t, 1, stored.Result.Succeeded())
	for _, item := range stored.Result.Items {
		switch item.Kind {
		case domain.ResourceKindQuiz:
			assert.Equal(t, domain.ItemStatusDone, item.Status)
			assert.NotEmpty(t, item.PayloadRef)
		case domain.ResourceKindWorksheet:
			assert.Equal(t, domain.ItemStatusFailed, item.Status)
			assert.Equal(t, "model unavailable", item.Error)
		}
	}

	assert.Equal(t, []notify.Outcome{notify.OutcomeFailed}, notifier.outcomes())
}

func TestGenerationTaskQuorumFailureConcurrentAdvance(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	notifier := &fakeNotifier{}
	gen := &stubGenerator{err: errors.New("model unavailable")}
	coord := newTestCoordinator(gen, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)
	jobs.put(job)

	// The reaper fails the job while the work is in flight; the quorum
	// failure loses the swap and sends nothing.
	require.NoError(t, jobs.MarkFailed(context.Background(), job.ID, "execution deadline exceeded", nil))

	task, err := NewGenerationTask(job, jobs, nil, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, "execution deadline exceeded", jobs.get(job.ID).ErrorMessage)
	assert.Empty(t, notifier.outcomes())
}

func TestGenerationTaskExecuteConcurrentAdvance(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	notifier := &fakeNotifier{}
	coord := newTestCoordinator(&stubGenerator{}, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)
	jobs.put(job)

	// The reaper fails the job while the work is in flight.
	require.NoError(t, jobs.MarkFailed(context.Background(), job.ID, "execution deadline exceeded", nil))

	task, err := NewGenerationTask(job, jobs, nil, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	// The lost swap on done is not an error, and the other actor's state wins.
	require.NoError(t, task.Execute(context.Background()))
	stored := jobs.get(job.ID)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Empty(t, notifier.outcomes())
}

func TestGenerationTaskHistoryFailureTolerated(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	history := &fakeHistoryStore{failErr: errors.New("ledger unavailable")}
	coord := newTestCoordinator(&stubGenerator{}, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)
	jobs.put(job)

	task, err := NewGenerationTask(job, jobs, history, coord, &fakeNotifier{}, nil, discardLogger())
	require.NoError(t, err)

	// A history failure never fails the job.
	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, domain.JobStatusDone, jobs.get(job.ID).Status)
}

func TestGenerationTaskNotifyRetriesOnce(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	notifier := &fakeNotifier{failFirst: true}
	coord := newTestCoordinator(&stubGenerator{}, newStubCache())

	job, err := newRunningJob(uuid.New(), "quiz")
	require.NoError(t, err)
	jobs.put(job)

	task, err := NewGenerationTask(job, jobs, nil, coord, notifier, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))

	// First delivery failed, the single retry succeeded.
	assert.Equal(t, []notify.Outcome{notify.OutcomeDone}, notifier.outcomes())
}

func TestGenerationTaskFactory(t *testing.T) {
	t.Parallel()

	jobs := newFakeJobStore()
	coord := newTestCoordinator(&stubGenerator{}, newStubCache())
	factory := NewGenerationTaskFactory(jobs, nil, coord, &fakeNotifier{}, nil, discardLogger())

	job, err := newQueuedJob(uuid.New(), "quiz")
	require.NoError(t, err)

	created, err := factory.CreateTask(job)
	require.NoError(t, err)
	assert.Equal(t, job.ID, created.ID())

	_, err = factory.CreateTask(nil)
	assert.ErrorIs(t, err, ErrNilJob)
}
