package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ResourceKind identifies one of the teaching resource types the service
// knows how to generate. The set is closed: every kind maps to a generation
// capability registered at startup.
type ResourceKind string

// Supported resource kinds.
const (
	ResourceKindPresentation ResourceKind = "presentation"
	ResourceKindQuiz         ResourceKind = "quiz"
	ResourceKindWorksheet    ResourceKind = "worksheet"
	ResourceKindLessonPlan   ResourceKind = "lesson_plan"
)

// Request validation errors. All wrap ErrInvalidRequest so callers can
// classify them with a single errors.Is check.
var (
	ErrInvalidRequest      = errors.New("invalid generation request")
	ErrNoResourceKinds     = fmt.Errorf("%w: at least one resource kind is required", ErrInvalidRequest)
	ErrUnknownResourceKind = fmt.Errorf("%w: unknown resource kind", ErrInvalidRequest)
	ErrEmptyTopic          = fmt.Errorf("%w: topic cannot be empty", ErrInvalidRequest)
	ErrEmptyGradeLevel     = fmt.Errorf("%w: grade level cannot be empty", ErrInvalidRequest)
	ErrInvalidSectionCount = fmt.Errorf("%w: section count must be between 1 and 20", ErrInvalidRequest)
)

// Defaults applied during normalization so that an omitted field and an
// explicitly defaulted field produce the same fingerprint.
const (
	DefaultLanguage     = "english"
	DefaultSectionCount = 5
)

// MaxSectionCount bounds the size of a single generated resource.
const MaxSectionCount = 20

// Request is an immutable, normalized description of one generation request.
// Construct it with NewRequest; a zero or hand-built Request may not be
// normalized and must not be fingerprinted.
type Request struct {
	ResourceKinds []ResourceKind `json:"resource_kinds"`
	Topic         string         `json:"topic"`
	Subject       string         `json:"subject"`
	GradeLevel    string         `json:"grade_level"`
	Language      string         `json:"language"`
	SectionCount  int            `json:"section_count"`
	Standards     []string       `json:"standards,omitempty"`

	// SharedResearch marks a sub-request that was generated under a shared
	// research context. It participates in fingerprinting so that aligned
	// multi-path output never shadows an independent single-path cache entry
	// for the same topic.
	SharedResearch bool `json:"shared_research,omitempty"`
}

// NewRequest builds a normalized Request from raw client input.
// Normalization trims whitespace, case-folds classification fields, sorts and
// deduplicates standards, and applies defaults for omitted optional fields.
// Returns an error wrapping ErrInvalidRequest if validation fails.
func NewRequest(
	kinds []string,
	topic, subject, gradeLevel, language string,
	sectionCount int,
	standards []string,
) (Request, error) {
	if len(kinds) == 0 {
		return Request{}, ErrNoResourceKinds
	}

	normalizedKinds := make([]ResourceKind, 0, len(kinds))
	seenKinds := make(map[ResourceKind]bool, len(kinds))
	for _, raw := range kinds {
		kind, err := ParseResourceKind(raw)
		if err != nil {
			return Request{}, err
		}
		if !seenKinds[kind] {
			seenKinds[kind] = true
			normalizedKinds = append(normalizedKinds, kind)
		}
	}
	sort.Slice(normalizedKinds, func(i, j int) bool {
		return normalizedKinds[i] < normalizedKinds[j]
	})

	req := Request{
		ResourceKinds: normalizedKinds,
		Topic:         strings.TrimSpace(topic),
		Subject:       strings.ToLower(strings.TrimSpace(subject)),
		GradeLevel:    strings.ToLower(strings.TrimSpace(gradeLevel)),
		Language:      strings.ToLower(strings.TrimSpace(language)),
		SectionCount:  sectionCount,
		Standards:     normalizeStandards(standards),
	}

	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	if req.SectionCount == 0 {
		req.SectionCount = DefaultSectionCount
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}

	return req, nil
}

// ParseResourceKind normalizes a raw kind string ("Lesson Plan", "lesson-plan")
// into a ResourceKind, or returns ErrUnknownResourceKind.
func ParseResourceKind(raw string) (ResourceKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	switch ResourceKind(normalized) {
	case ResourceKindPresentation, ResourceKindQuiz, ResourceKindWorksheet, ResourceKindLessonPlan:
		return ResourceKind(normalized), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceKind, raw)
	}
}

// Validate checks that the Request holds normalized, usable data.
func (r Request) Validate() error {
	if len(r.ResourceKinds) == 0 {
		return ErrNoResourceKinds
	}
	for _, kind := range r.ResourceKinds {
		if _, err := ParseResourceKind(string(kind)); err != nil {
			return err
		}
	}
	if r.Topic == "" {
		return ErrEmptyTopic
	}
	if r.GradeLevel == "" {
		return ErrEmptyGradeLevel
	}
	if r.SectionCount < 1 || r.SectionCount > MaxSectionCount {
		return ErrInvalidSectionCount
	}
	return nil
}

// ForKind derives the per-kind sub-request used by the coordinator when
// fanning out. The sub-request covers exactly one resource kind and records
// whether it runs under a shared research context, which keeps its cache
// fingerprint distinct from a single-path run of the same topic.
func (r Request) ForKind(kind ResourceKind, sharedResearch bool) Request {
	sub := r
	sub.ResourceKinds = []ResourceKind{kind}
	sub.SharedResearch = sharedResearch
	return sub
}

// MultiPath reports whether the request asks for more than one resource kind
// and therefore takes the coordinated fan-out path.
func (r Request) MultiPath() bool {
	return len(r.ResourceKinds) > 1
}

func normalizeStandards(standards []string) []string {
	if len(standards) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(standards))
	normalized := make([]string, 0, len(standards))
	for _, s := range standards {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		return nil
	}

	sort.Strings(normalized)
	return normalized
}
