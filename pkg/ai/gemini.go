package ai

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/firstround/interviewd/pkg/models"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider generates questions, feedback, and summaries through the
// Gemini API. It speaks the same JSON contract as the OpenAI provider, so
// the two are interchangeable behind the Provider interface.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider builds a provider. model falls back to a small default.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	if model == "" {
		model = defaultGeminiModel
		slog.Warn("Gemini model not set, using default", "model", model)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

var _ Provider = (*GeminiProvider)(nil)

// complete issues one generation and returns the raw model text.
func (p *GeminiProvider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate content returned no text")
	}
	return text, nil
}

func (p *GeminiProvider) GenerateQuestion(ctx context.Context, req QuestionRequest) (models.Question, error) {
	system, user := questionPrompt(req)
	out, err := p.complete(ctx, system, user)
	if err != nil {
		return models.Question{}, err
	}
	return parseQuestion(req, out)
}

func (p *GeminiProvider) AnalyzeAnswer(ctx context.Context, q models.Question, a models.Answer) (models.Feedback, error) {
	system, user := analyzePrompt(q, a)
	out, err := p.complete(ctx, system, user)
	if err != nil {
		return models.Feedback{}, err
	}
	return parseFeedback(out)
}

func (p *GeminiProvider) GenerateSummary(ctx context.Context, req SummaryRequest) (models.Summary, error) {
	system, user := summaryPrompt(req)
	out, err := p.complete(ctx, system, user)
	if err != nil {
		return models.Summary{}, err
	}
	return parseSummary(req, out)
}
