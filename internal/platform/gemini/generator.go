package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/config"
	"github.com/calebmoore/lessonforge-api/internal/domain"
	"github.com/calebmoore/lessonforge-api/internal/generation"
	"google.golang.org/genai"
)

// Generator implements generation.ContentGenerator and
// generation.ResearchProvider using Google's Gemini API.
type Generator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// contentTemplate renders the per-kind content prompt
	contentTemplate *template.Template

	// researchTemplate renders the topic research prompt
	researchTemplate *template.Template

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// Interface checks
var (
	_ generation.ContentGenerator = (*Generator)(nil)
	_ generation.ResearchProvider = (*Generator)(nil)
)

// promptData carries the fields the prompt templates render.
type promptData struct {
	KindLabel    string
	Topic        string
	Subject      string
	GradeLevel   string
	Language     string
	SectionCount int
	Standards    []string
	Research     *domain.ResearchContext
}

// NewGenerator creates a new Generator with the provided dependencies.
// It validates the configuration, parses the prompt templates, and
// initializes the Gemini client.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	contentTmpl, err := template.New("content").Parse(contentPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse content prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	researchTmpl, err := template.New("research").Parse(researchPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse research prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:           logger,
		config:           cfg,
		contentTemplate:  contentTmpl,
		researchTemplate: researchTmpl,
		client:           client,
		model:            cfg.ModelName,
	}, nil
}

// Generate implements generation.ContentGenerator.Generate
func (g *Generator) Generate(
	ctx context.Context,
	kind domain.ResourceKind,
	req domain.Request,
	research *domain.ResearchContext,
) (*generation.GeneratedContent, error) {
	prompt, err := g.renderPrompt(g.contentTemplate, kind, req, research)
	if err != nil {
		return nil, err
	}

	text, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed contentSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}
	if len(parsed.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections in response", generation.ErrInvalidResponse)
	}

	sections := make([]generation.Section, 0, len(parsed.Sections))
	for i, s := range parsed.Sections {
		if s.Title == "" {
			return nil, fmt.Errorf("%w: section %d missing title", generation.ErrInvalidResponse, i)
		}
		if len(s.Content) == 0 {
			return nil, fmt.Errorf("%w: section %d has no content", generation.ErrInvalidResponse, i)
		}
		sections = append(sections, generation.Section{
			Title:   s.Title,
			Layout:  s.Layout,
			Content: s.Content,
		})
	}

	g.logger.InfoContext(ctx, "Generated content",
		"kind", kind,
		"topic", req.Topic,
		"section_count", len(sections))

	return &generation.GeneratedContent{
		Kind:     kind,
		Topic:    req.Topic,
		Sections: sections,
	}, nil
}

// Research implements generation.ResearchProvider.Research
func (g *Generator) Research(ctx context.Context, req domain.Request) (*domain.ResearchContext, error) {
	prompt, err := g.renderPrompt(g.researchTemplate, "", req, nil)
	if err != nil {
		return nil, err
	}

	text, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed researchSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}
	if parsed.Overview == "" {
		return nil, fmt.Errorf("%w: research response missing overview", generation.ErrInvalidResponse)
	}

	vocabulary := make([]domain.VocabularyTerm, 0, len(parsed.Vocabulary))
	for _, v := range parsed.Vocabulary {
		vocabulary = append(vocabulary, domain.VocabularyTerm{
			Term:       v.Term,
			Definition: v.Definition,
		})
	}

	return &domain.ResearchContext{
		Topic:             req.Topic,
		Overview:          parsed.Overview,
		CoreConcepts:      parsed.CoreConcepts,
		KeyLearningPoints: parsed.KeyLearningPoints,
		Examples:          parsed.Examples,
		Vocabulary:        vocabulary,
		Misconceptions:    parsed.Misconceptions,
	}, nil
}

func (g *Generator) renderPrompt(
	tmpl *template.Template,
	kind domain.ResourceKind,
	req domain.Request,
	research *domain.ResearchContext,
) (string, error) {
	data := promptData{
		KindLabel:    strings.ReplaceAll(string(kind), "_", " "),
		Topic:        req.Topic,
		Subject:      req.Subject,
		GradeLevel:   req.GradeLevel,
		Language:     req.Language,
		SectionCount: req.SectionCount,
		Standards:    req.Standards,
		Research:     research,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential backoff
// retry logic. Transient API errors are retried up to config.MaxRetries times;
// safety blocks and empty responses are returned immediately without retrying.
func (g *Generator) callGeminiWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "Invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "Invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "Making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)

		var transient bool
		var text string
		switch {
		case err != nil:
			// API-level failures are assumed transient.
			transient = true
			err = fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case resp == nil || len(resp.Candidates) == 0:
			err = fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
		case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
			err = fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
		default:
			text = resp.Text()
			if text == "" {
				err = fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
			}
		}

		if err == nil {
			return text, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if !transient {
			return "", err
		}
		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				generation.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}
