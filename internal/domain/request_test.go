package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewRequestNormalization(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(
		[]string{"Quiz", "lesson-plan", "QUIZ"},
		"  Photosynthesis  ",
		"  Biology ",
		" 7th Grade ",
		"",
		0,
		[]string{" NGSS-LS1 ", "ngss-ls1", "CCSS.3"},
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	wantKinds := []ResourceKind{ResourceKindLessonPlan, ResourceKindQuiz}
	if !reflect.DeepEqual(req.ResourceKinds, wantKinds) {
		t.Errorf("Expected kinds %v, got %v", wantKinds, req.ResourceKinds)
	}
	if req.Topic != "Photosynthesis" {
		t.Errorf("Expected trimmed topic, got %q", req.Topic)
	}
	if req.Subject != "biology" {
		t.Errorf("Expected lowercased subject, got %q", req.Subject)
	}
	if req.GradeLevel != "7th grade" {
		t.Errorf("Expected lowercased grade level, got %q", req.GradeLevel)
	}
	if req.Language != DefaultLanguage {
		t.Errorf("Expected default language, got %q", req.Language)
	}
	if req.SectionCount != DefaultSectionCount {
		t.Errorf("Expected default section count, got %d", req.SectionCount)
	}
	wantStandards := []string{"ccss.3", "ngss-ls1"}
	if !reflect.DeepEqual(req.Standards, wantStandards) {
		t.Errorf("Expected standards %v, got %v", wantStandards, req.Standards)
	}
}

func TestNewRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		kinds        []string
		topic        string
		gradeLevel   string
		sectionCount int
		wantErr      error
	}{
		{
			name:       "no kinds",
			kinds:      nil,
			topic:      "Fractions",
			gradeLevel: "4th",
			wantErr:    ErrNoResourceKinds,
		},
		{
			name:       "unknown kind",
			kinds:      []string{"poster"},
			topic:      "Fractions",
			gradeLevel: "4th",
			wantErr:    ErrUnknownResourceKind,
		},
		{
			name:       "whitespace topic",
			kinds:      []string{"quiz"},
			topic:      "   ",
			gradeLevel: "4th",
			wantErr:    ErrEmptyTopic,
		},
		{
			name:       "empty grade level",
			kinds:      []string{"quiz"},
			topic:      "Fractions",
			gradeLevel: "",
			wantErr:    ErrEmptyGradeLevel,
		},
		{
			name:         "section count above max",
			kinds:        []string{"quiz"},
			topic:        "Fractions",
			gradeLevel:   "4th",
			sectionCount: MaxSectionCount + 1,
			wantErr:      ErrInvalidSectionCount,
		},
		{
			name:         "negative section count",
			kinds:        []string{"quiz"},
			topic:        "Fractions",
			gradeLevel:   "4th",
			sectionCount: -1,
			wantErr:      ErrInvalidSectionCount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRequest(tc.kinds, tc.topic, "", tc.gradeLevel, "", tc.sectionCount, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Expected error to wrap ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestParseResourceKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want ResourceKind
	}{
		{"quiz", ResourceKindQuiz},
		{"  Quiz ", ResourceKindQuiz},
		{"Lesson Plan", ResourceKindLessonPlan},
		{"lesson-plan", ResourceKindLessonPlan},
		{"WORKSHEET", ResourceKindWorksheet},
		{"presentation", ResourceKindPresentation},
	}
	for _, tc := range tests {
		got, err := ParseResourceKind(tc.raw)
		if err != nil {
			t.Errorf("ParseResourceKind(%q): unexpected error %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseResourceKind(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}

	if _, err := ParseResourceKind("flashcards"); !errors.Is(err, ErrUnknownResourceKind) {
		t.Errorf("Expected ErrUnknownResourceKind, got %v", err)
	}
}

func TestForKind(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(
		[]string{"quiz", "worksheet"},
		"Fractions", "math", "4th", "english", 5, nil,
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sub := req.ForKind(ResourceKindQuiz, true)
	if len(sub.ResourceKinds) != 1 || sub.ResourceKinds[0] != ResourceKindQuiz {
		t.Errorf("Expected single quiz kind, got %v", sub.ResourceKinds)
	}
	if !sub.SharedResearch {
		t.Error("Expected SharedResearch to be set")
	}

	// The parent request is untouched.
	if len(req.ResourceKinds) != 2 || req.SharedResearch {
		t.Errorf("Parent request was mutated: %+v", req)
	}
}

func TestMultiPath(t *testing.T) {
	t.Parallel()

	single, err := NewRequest([]string{"quiz"}, "Fractions", "", "4th", "", 0, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if single.MultiPath() {
		t.Error("Single-kind request should not be multi-path")
	}

	multi, err := NewRequest([]string{"quiz", "worksheet"}, "Fractions", "", "4th", "", 0, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !multi.MultiPath() {
		t.Error("Two-kind request should be multi-path")
	}
}
