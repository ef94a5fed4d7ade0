package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"text/template"

	"github.com/calebmoore/lessonforge-api/internal/config"
	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newPromptOnlyGenerator builds a Generator with parsed templates and no API
// client, enough for exercising prompt rendering.
func newPromptOnlyGenerator(t *testing.T) *Generator {
	t.Helper()
	contentTmpl, err := template.New("content").Parse(contentPromptTemplate)
	require.NoError(t, err)
	researchTmpl, err := template.New("research").Parse(researchPromptTemplate)
	require.NoError(t, err)
	return &Generator{
		logger:           testLogger(),
		contentTemplate:  contentTmpl,
		researchTemplate: researchTmpl,
	}
}

func promptRequest(t *testing.T) domain.Request {
	t.Helper()
	req, err := domain.NewRequest(
		[]string{"lesson_plan"},
		"Photosynthesis", "biology", "7th grade", "english", 6,
		[]string{"ngss-ls1"},
	)
	require.NoError(t, err)
	return req
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewGenerator(ctx, nil, config.LLMConfig{GeminiAPIKey: "key", ModelName: "model"})
	assert.Error(t, err)

	_, err = NewGenerator(ctx, testLogger(), config.LLMConfig{ModelName: "model"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(ctx, testLogger(), config.LLMConfig{GeminiAPIKey: "key"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestRenderContentPrompt(t *testing.T) {
	t.Parallel()

	g := newPromptOnlyGenerator(t)
	req := promptRequest(t)

	prompt, err := g.renderPrompt(g.contentTemplate, domain.ResourceKindLessonPlan, req, nil)
	require.NoError(t, err)

	// The kind label is human readable, not the wire form.
	assert.Contains(t, prompt, "lesson plan")
	assert.NotContains(t, prompt, "lesson_plan")

	assert.Contains(t, prompt, "Topic: Photosynthesis")
	assert.Contains(t, prompt, "Subject: biology")
	assert.Contains(t, prompt, "Grade level: 7th grade")
	assert.Contains(t, prompt, "Number of sections: 6")
	assert.Contains(t, prompt, "ngss-ls1")

	// Without research, the alignment block is omitted.
	assert.NotContains(t, prompt, "topic synopsis")
}

func TestRenderContentPromptWithResearch(t *testing.T) {
	t.Parallel()

	g := newPromptOnlyGenerator(t)
	req := promptRequest(t)
	research := &domain.ResearchContext{
		Topic:          "Photosynthesis",
		Overview:       "Plants convert light into chemical energy.",
		CoreConcepts:   []string{"chlorophyll", "light reactions"},
		Misconceptions: []string{"plants eat soil"},
	}

	prompt, err := g.renderPrompt(g.contentTemplate, domain.ResourceKindQuiz, req, research)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Plants convert light into chemical energy.")
	assert.Contains(t, prompt, "chlorophyll; light reactions")
	assert.Contains(t, prompt, "plants eat soil")
}

func TestRenderResearchPrompt(t *testing.T) {
	t.Parallel()

	g := newPromptOnlyGenerator(t)
	req := promptRequest(t)

	prompt, err := g.renderPrompt(g.researchTemplate, "", req, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Topic: Photosynthesis")
	assert.Contains(t, prompt, `"vocabulary"`)
	assert.Contains(t, prompt, "misconceptions")
}
