package generation

import (
	"context"

	"github.com/calebmoore/lessonforge-api/internal/domain"
)

// Section is one unit of generated structured content: a titled block with a
// layout hint and a list of content lines. Document rendering (pptx, docx)
// consumes this shape downstream; the orchestration core only stores it.
type Section struct {
	Title   string   `json:"title"`
	Layout  string   `json:"layout"`
	Content []string `json:"content"`
}

// GeneratedContent is the structured payload produced for one resource kind.
type GeneratedContent struct {
	Kind     domain.ResourceKind `json:"kind"`
	Topic    string              `json:"topic"`
	Sections []Section           `json:"sections"`
}

// ContentGenerator defines the interface for generating structured teaching
// content. This interface is the boundary between the orchestration core and
// external AI/LLM services, following the hexagonal architecture pattern.
//
// Generate may be slow (seconds) and may fail transiently; callers bound it
// with a context deadline and classify failures via the errors in errors.go.
// The research context is optional: nil means the resource is generated
// independently, non-nil means it must stay aligned with the shared synopsis.
type ContentGenerator interface {
	Generate(
		ctx context.Context,
		kind domain.ResourceKind,
		req domain.Request,
		research *domain.ResearchContext,
	) (*GeneratedContent, error)
}

// ResearchProvider builds the shared topic synopsis used to keep multi-path
// output mutually consistent. Failure here is non-fatal: the coordinator
// degrades to independent generation.
type ResearchProvider interface {
	Research(ctx context.Context, req domain.Request) (*domain.ResearchContext, error)
}
