package ai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/firstround/interviewd/pkg/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider generates questions, feedback, and summaries through the
// OpenAI chat completions API. Credentials come from config only; they are
// never accepted from clients.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider. model falls back to a small default.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}
	if model == "" {
		model = defaultOpenAIModel
		slog.Warn("OpenAI model not set, using default", "model", model)
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}, nil
}

var _ Provider = (*OpenAIProvider)(nil)

// complete issues one chat completion and returns the raw assistant text.
func (p *OpenAIProvider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) GenerateQuestion(ctx context.Context, req QuestionRequest) (models.Question, error) {
	system, user := questionPrompt(req)
	out, err := p.complete(ctx, system, user)
	if err != nil {
		return models.Question{}, err
	}
	return parseQuestion(req, out)
}

func (p *OpenAIProvider) AnalyzeAnswer(ctx context.Context, q models.Question, a models.Answer) (models.Feedback, error) {
	system, user := analyzePrompt(q, a)
	out, err := p.complete(ctx, system, user)
	if err != nil {
		return models.Feedback{}, err
	}
	return parseFeedback(out)
}

func (p *OpenAIProvider) GenerateSummary(ctx context.Context, req SummaryRequest) (models.Summary, error) {
	system, user := summaryPrompt(req)
	out, err := p.complete(ctx, system, user)
	if err != nil {
		return models.Summary{}, err
	}
	return parseSummary(req, out)
}
