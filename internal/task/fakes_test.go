package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/coordinator"
	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/generation"
	"github.com/calebmoore/lessonforge-api/internal/notify"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeJobStore is an in-memory JobStore with the same compare-and-swap
// semantics as the Postgres implementation.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	// failGetByID makes GetByID return this error when set.
	failGetByID error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (s *fakeJobStore) put(job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
}

func (s *fakeJobStore) get(id uuid.UUID) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		copied := *job
		return &copied
	}
	return nil
}

func (s *fakeJobStore) Create(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	s.put(job)
	return nil
}

func (s *fakeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if s.failGetByID != nil {
		return nil, s.failGetByID
	}
	job := s.get(id)
	if job == nil {
		return nil, store.ErrJobNotFound
	}
	return job, nil
}

func (s *fakeJobStore) cas(id uuid.UUID, expected domain.JobStatus, apply func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != expected {
		return store.ErrStaleStatus
	}
	apply(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeJobStore) MarkRunning(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	return s.cas(id, domain.JobStatusQueued, func(j *domain.Job) {
		j.Status = domain.JobStatusRunning
		j.Attempts++
		j.Deadline = &deadline
	})
}

func (s *fakeJobStore) MarkDone(ctx context.Context, id uuid.UUID, result *domain.JobResult) error {
	return s.cas(id, domain.JobStatusRunning, func(j *domain.Job) {
		j.Status = domain.JobStatusDone
		j.Result = result
		j.ErrorMessage = ""
		j.Deadline = nil
	})
}

func (s *fakeJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, result *domain.JobResult) error {
	return s.cas(id, domain.JobStatusRunning, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.ErrorMessage = errorMessage
		if result != nil {
			j.Result = result
		}
		j.Deadline = nil
	})
}

func (s *fakeJobStore) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	return s.cas(id, domain.JobStatusRunning, func(j *domain.Job) {
		j.Status = domain.JobStatusCancelled
		j.Deadline = nil
	})
}

func (s *fakeJobStore) Requeue(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusFailed || !job.CanRetry() {
		return store.ErrStaleStatus
	}
	job.Status = domain.JobStatusQueued
	job.Deadline = nil
	return nil
}

func (s *fakeJobStore) CancelQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	err := s.cas(id, domain.JobStatusQueued, func(j *domain.Job) {
		j.Status = domain.JobStatusCancelled
	})
	if errors.Is(err, store.ErrStaleStatus) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *fakeJobStore) RequestCancel(ctx context.Context, id uuid.UUID) (bool, error) {
	err := s.cas(id, domain.JobStatusRunning, func(j *domain.Job) {
		j.CancelRequested = true
	})
	if errors.Is(err, store.ErrStaleStatus) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *fakeJobStore) IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	job := s.get(id)
	if job == nil {
		return false, store.ErrJobNotFound
	}
	return job.CancelRequested, nil
}

func (s *fakeJobStore) FindByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, job := range s.jobs {
		if job.Status == status {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeJobStore) FindExpiredRunning(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusRunning && job.Deadline != nil && job.Deadline.Before(now) {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeJobStore) WithTx(tx *sql.Tx) store.JobStore { return s }

// fakeHistoryStore records ledger entries in memory with daily dedup.
type fakeHistoryStore struct {
	mu      sync.Mutex
	records []*domain.HistoryRecord
	failErr error
}

func (s *fakeHistoryStore) Record(ctx context.Context, record *domain.HistoryRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	for _, existing := range s.records {
		if existing.UserID == record.UserID &&
			existing.Fingerprint == record.Fingerprint &&
			existing.ActivityDate.Equal(record.ActivityDate) {
			return false, nil
		}
	}
	s.records = append(s.records, record)
	return true, nil
}

func (s *fakeHistoryStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.HistoryRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeHistoryStore) WithTx(tx *sql.Tx) store.HistoryStore { return s }

func (s *fakeHistoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fakeNotifier records delivered notifications; failFirst makes the first
// delivery attempt fail.
type fakeNotifier struct {
	mu        sync.Mutex
	calls     []notify.Outcome
	failFirst bool
}

func (n *fakeNotifier) Notify(ctx context.Context, userID, jobID uuid.UUID, outcome notify.Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFirst {
		n.failFirst = false
		return errors.New("delivery failed")
	}
	n.calls = append(n.calls, outcome)
	return nil
}

func (n *fakeNotifier) outcomes() []notify.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Outcome, len(n.calls))
	copy(out, n.calls)
	return out
}

// stubGenerator drives the coordinator used by task tests. A non-nil err
// fails every call, or only the failKind calls when failKind is set.
type stubGenerator struct {
	mu       sync.Mutex
	err      error
	failKind domain.ResourceKind
	calls    int
}

func (g *stubGenerator) Generate(
	ctx context.Context,
	kind domain.ResourceKind,
	req domain.Request,
	research *domain.ResearchContext,
) (*generation.GeneratedContent, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil && (g.failKind == "" || g.failKind == kind) {
		return nil, g.err
	}
	return &generation.GeneratedContent{
		Kind:  kind,
		Topic: req.Topic,
		Sections: []generation.Section{
			{Title: "Overview", Layout: "bullets", Content: []string{"a"}},
		},
	}, nil
}

func (g *stubGenerator) Research(ctx context.Context, req domain.Request) (*domain.ResearchContext, error) {
	return &domain.ResearchContext{Topic: req.Topic}, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// stubCache is an in-memory CacheStore shared with the coordinator.
type stubCache struct {
	mu      sync.Mutex
	entries map[domain.Fingerprint]json.RawMessage
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[domain.Fingerprint]json.RawMessage)}
}

func (c *stubCache) Lookup(ctx context.Context, fp domain.Fingerprint) (json.RawMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[fp]
	return payload, ok, nil
}

func (c *stubCache) StoreIfAbsent(ctx context.Context, fp domain.Fingerprint, payload json.RawMessage) (json.RawMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[fp]; ok {
		return existing, false, nil
	}
	c.entries[fp] = payload
	return payload, true, nil
}

func (c *stubCache) EvictSweep(ctx context.Context, policy store.EvictionPolicy) (int64, error) {
	return 0, nil
}

func (c *stubCache) WithTx(tx *sql.Tx) store.CacheStore { return c }

// stubTask is a minimal Task for queue and runner tests.
type stubTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func (t *stubTask) ID() uuid.UUID { return t.id }
func (t *stubTask) Type() string  { return "stub" }
func (t *stubTask) Execute(ctx context.Context) error {
	if t.execute == nil {
		return nil
	}
	return t.execute(ctx)
}

// stubFactory builds stubTasks keyed by job ID.
type stubFactory struct {
	mu      sync.Mutex
	execute func(ctx context.Context) error
	created []uuid.UUID
	err     error
}

func (f *stubFactory) CreateTask(job *domain.Job) (Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, job.ID)
	return &stubTask{id: job.ID, execute: f.execute}, nil
}

func (f *stubFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func newQueuedJob(userID uuid.UUID, kinds ...string) (*domain.Job, error) {
	req, err := domain.NewRequest(kinds, "Fractions", "math", "4th", "english", 5, nil)
	if err != nil {
		return nil, err
	}
	return domain.NewJob(userID, req, 3)
}

func newRunningJob(userID uuid.UUID, kinds ...string) (*domain.Job, error) {
	job, err := newQueuedJob(userID, kinds...)
	if err != nil {
		return nil, err
	}
	if err := job.Transition(domain.JobStatusRunning); err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}
	return job, nil
}

func newTestCoordinator(gen *stubGenerator, cache *stubCache) *coordinator.Coordinator {
	return coordinator.New(gen, gen, cache, 0, nil)
}
