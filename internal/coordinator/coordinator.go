package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/generation"
	"github.com/calebmoore/lessonforge-api/internal/platform/logger"
	"github.com/calebmoore/lessonforge-api/internal/platform/metrics"
	"github.com/calebmoore/lessonforge-api/internal/store"
)

// Path identifies the execution plan for a request.
type Path string

// Execution paths.
const (
	SinglePath Path = "single"
	MultiPath  Path = "multi"
)

// Plan selects the execution path: one requested resource kind runs on the
// single path, several fan out on the multi path.
func Plan(req domain.Request) Path {
	if req.MultiPath() {
		return MultiPath
	}
	return SinglePath
}

// CancelCheck reports whether cooperative cancellation has been requested
// for the job being executed. It is consulted at checkpoints between
// expensive steps; an error from the check is logged and treated as "not
// cancelled" so a flaky status read never kills a healthy run.
type CancelCheck func(ctx context.Context) (bool, error)

// Coordinator executes generation requests against the cache and the
// generation collaborators.
type Coordinator struct {
	generator generation.ContentGenerator
	research  generation.ResearchProvider
	cache     store.CacheStore
	metrics   *metrics.Metrics

	// minQuorum is the configured success floor for multi-path runs.
	// Zero means every requested kind must succeed.
	minQuorum int
}

// New creates a Coordinator. The metrics parameter may be nil, in which case
// no instrumentation is recorded.
func New(
	generator generation.ContentGenerator,
	research generation.ResearchProvider,
	cache store.CacheStore,
	minQuorum int,
	m *metrics.Metrics,
) *Coordinator {
	return &Coordinator{
		generator: generator,
		research:  research,
		cache:     cache,
		metrics:   m,
		minQuorum: minQuorum,
	}
}

// Execute runs the request to completion and merges the per-kind outcomes.
//
// It returns ErrCancelled when a checkpoint observes a cancellation request,
// a *QuorumNotMetError (with the partial result) when too few kinds succeed,
// and otherwise the merged result. Items appear in request order.
func (c *Coordinator) Execute(ctx context.Context, req domain.Request, cancelled CancelCheck) (*domain.JobResult, error) {
	log := logger.FromContext(ctx)

	if cancelled == nil {
		cancelled = func(context.Context) (bool, error) { return false, nil }
	}

	if c.isCancelled(ctx, cancelled) {
		return nil, ErrCancelled
	}

	// Build the shared research context once, before fan-out. The pointer is
	// handed to every sub-task read-only; nobody writes it after this point.
	var research *domain.ResearchContext
	sharedResearch := false
	if Plan(req) == MultiPath {
		rc, err := c.research.Research(ctx, req)
		if err != nil {
			// Degraded mode: each kind generates independently.
			log.Warn("research context unavailable, generating kinds independently",
				"topic", req.Topic,
				"error", err)
		} else {
			research = rc
			sharedResearch = true
		}

		if c.isCancelled(ctx, cancelled) {
			return nil, ErrCancelled
		}
	}

	items := make([]domain.ItemResult, len(req.ResourceKinds))
	var wg sync.WaitGroup
	for i, kind := range req.ResourceKinds {
		wg.Add(1)
		go func(i int, kind domain.ResourceKind) {
			defer wg.Done()
			items[i] = c.executeKind(ctx, req, kind, research, sharedResearch, cancelled)
		}(i, kind)
	}
	wg.Wait()

	// A cancellation observed by any sub-task wins over the merge: the job
	// is being abandoned, not failed.
	if c.isCancelled(ctx, cancelled) {
		return nil, ErrCancelled
	}

	result := &domain.JobResult{Items: items}
	quorum := c.quorumFor(req)
	if succeeded := result.Succeeded(); succeeded < quorum {
		return result, &QuorumNotMetError{
			Succeeded: succeeded,
			Required:  quorum,
		}
	}

	return result, nil
}

// executeKind produces the outcome for one resource kind: cache hit, fresh
// generation, failure, or cancellation.
func (c *Coordinator) executeKind(
	ctx context.Context,
	req domain.Request,
	kind domain.ResourceKind,
	research *domain.ResearchContext,
	sharedResearch bool,
	cancelled CancelCheck,
) domain.ItemResult {
	log := logger.FromContext(ctx)

	if c.isCancelled(ctx, cancelled) {
		return domain.ItemResult{Kind: kind, Status: domain.ItemStatusCancelled}
	}

	sub := req.ForKind(kind, sharedResearch)
	fp := sub.Fingerprint()

	_, found, err := c.cache.Lookup(ctx, fp)
	if err != nil {
		return domain.ItemResult{
			Kind:   kind,
			Status: domain.ItemStatusFailed,
			Error:  fmt.Sprintf("cache lookup failed: %v", err),
		}
	}
	if c.metrics != nil {
		c.metrics.ObserveCacheLookup(found)
	}
	if found {
		log.Debug("cache hit",
			"kind", kind,
			"fingerprint", fp)
		return domain.ItemResult{
			Kind:       kind,
			Status:     domain.ItemStatusDone,
			PayloadRef: fp,
			Cached:     true,
		}
	}

	start := time.Now()
	content, err := c.generator.Generate(ctx, kind, sub, research)
	if c.metrics != nil {
		c.metrics.GenerationDuration.WithLabelValues(string(kind)).
			Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.GenerationCalls.WithLabelValues(string(kind), "error").Inc()
		}
		log.Warn("generation failed",
			"kind", kind,
			"error", err)
		return domain.ItemResult{
			Kind:   kind,
			Status: domain.ItemStatusFailed,
			Error:  err.Error(),
		}
	}
	if c.metrics != nil {
		c.metrics.GenerationCalls.WithLabelValues(string(kind), "ok").Inc()
	}

	// Checkpoint between generation and the cache write: a cancelled
	// sub-task never stores its payload.
	if c.isCancelled(ctx, cancelled) {
		return domain.ItemResult{Kind: kind, Status: domain.ItemStatusCancelled}
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		return domain.ItemResult{
			Kind:   kind,
			Status: domain.ItemStatusFailed,
			Error:  fmt.Sprintf("failed to encode generated content: %v", err),
		}
	}

	_, wasNew, err := c.cache.StoreIfAbsent(ctx, fp, encoded)
	if err != nil {
		return domain.ItemResult{
			Kind:   kind,
			Status: domain.ItemStatusFailed,
			Error:  fmt.Sprintf("cache store failed: %v", err),
		}
	}
	if !wasNew {
		log.Debug("concurrent writer stored payload first",
			"kind", kind,
			"fingerprint", fp)
	}

	return domain.ItemResult{
		Kind:       kind,
		Status:     domain.ItemStatusDone,
		PayloadRef: fp,
	}
}

func (c *Coordinator) quorumFor(req domain.Request) int {
	total := len(req.ResourceKinds)
	if c.minQuorum <= 0 || c.minQuorum > total {
		return total
	}
	return c.minQuorum
}

func (c *Coordinator) isCancelled(ctx context.Context, cancelled CancelCheck) bool {
	requested, err := cancelled(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("cancellation check failed",
			"error", err)
		return false
	}
	return requested
}
