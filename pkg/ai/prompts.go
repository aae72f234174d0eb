package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/firstround/interviewd/pkg/models"
)

// Prompt construction and response parsing shared by the chat-style
// providers. Every provider is asked for the same JSON shapes, so the
// parsers live here rather than per provider.

// extractJSON tolerates models that wrap JSON in a markdown fence.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func questionPrompt(req QuestionRequest) (system, user string) {
	cfg := req.Session.Config
	var asked []string
	for _, q := range req.Asked {
		asked = append(asked, q.Text)
	}

	system = "You are an experienced interviewer. Respond with a single JSON object and nothing else."
	user = fmt.Sprintf(`Generate interview question %d of %d.
Role: %s (%s), %d years %d months experience, difficulty %s.
Question type: %s.
Job description: %s
Previously asked (do not repeat): %s

Respond with JSON: {"text": "...", "functionName": "...", "signature": "...", "tests": [{"input": [...], "expected": ...}], "options": ["..."], "slots": ["..."]}
Include functionName/signature/tests only for coding questions, options only for mcq, slots only for fib.`,
		req.Ordinal, cfg.QuestionCount,
		cfg.RoleCategory, cfg.RoleSubType, cfg.ExperienceYears, cfg.ExperienceMonths, cfg.Difficulty,
		req.Type, cfg.JobDescription, strings.Join(asked, " | "))
	return system, user
}

func parseQuestion(req QuestionRequest, out string) (models.Question, error) {
	var parsed struct {
		Text         string            `json:"text"`
		FunctionName string            `json:"functionName"`
		Signature    string            `json:"signature"`
		Tests        []models.CodeTest `json:"tests"`
		Options      []string          `json:"options"`
		Slots        []string          `json:"slots"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &parsed); err != nil {
		return models.Question{}, fmt.Errorf("parsing question response: %w", err)
	}
	if parsed.Text == "" {
		return models.Question{}, fmt.Errorf("question response missing text")
	}
	return models.Question{
		ID:           uuid.NewString(),
		SessionID:    req.Session.ID,
		Ordinal:      req.Ordinal,
		Type:         req.Type,
		Text:         parsed.Text,
		Difficulty:   req.Session.Config.Difficulty,
		FunctionName: parsed.FunctionName,
		Signature:    parsed.Signature,
		Tests:        parsed.Tests,
		Options:      parsed.Options,
		Slots:        parsed.Slots,
	}, nil
}

func analyzePrompt(q models.Question, a models.Answer) (system, user string) {
	answer := a.ResponseText
	if answer == "" && len(a.Transcripts) > 0 {
		answer = strings.Join(a.Transcripts, " ")
	}

	system = "You are an experienced interviewer grading one answer. Respond with a single JSON object and nothing else."
	user = fmt.Sprintf(`Question (%s): %s
Candidate answer: %s

Respond with JSON: {"score": 0-100, "feedback": "...", "modelAnswer": "..."}`,
		q.Type, q.Text, answer)
	return system, user
}

func parseFeedback(out string) (models.Feedback, error) {
	var fb models.Feedback
	if err := json.Unmarshal([]byte(extractJSON(out)), &fb); err != nil {
		return models.Feedback{}, fmt.Errorf("parsing feedback response: %w", err)
	}
	if fb.Score < 0 {
		fb.Score = 0
	}
	if fb.Score > 100 {
		fb.Score = 100
	}
	return fb, nil
}

func summaryPrompt(req SummaryRequest) (system, user string) {
	var b strings.Builder
	for _, qa := range req.QA {
		fmt.Fprintf(&b, "Q%d (%s): %s\n", qa.Question.Ordinal, qa.Question.Type, qa.Question.Text)
		if qa.Answer != nil {
			fmt.Fprintf(&b, "A: %s\n", qa.Answer.ResponseText)
		} else {
			b.WriteString("A: (not answered)\n")
		}
	}

	system = "You are an experienced interviewer writing a final interview report. Respond with a single JSON object and nothing else."
	user = fmt.Sprintf(`Role: %s, difficulty %s. %d strikes were recorded for proctoring violations.
Transcript:
%s
Respond with JSON: {"overall": 0-100, "rubric": {"communication": 1-5, "technical": 1-5, "problem_solving": 1-5}, "strengths": ["..."], "gaps": ["..."], "review": [{"ordinal": n, "score": 0-100, "feedback": "...", "modelAnswer": "..."}]}`,
		req.Session.Config.RoleCategory, req.Session.Config.Difficulty, len(req.Strikes), b.String())
	return system, user
}

func parseSummary(req SummaryRequest, out string) (models.Summary, error) {
	var parsed struct {
		Overall   int            `json:"overall"`
		Rubric    map[string]int `json:"rubric"`
		Strengths []string       `json:"strengths"`
		Gaps      []string       `json:"gaps"`
		Review    []struct {
			Ordinal     int    `json:"ordinal"`
			Score       int    `json:"score"`
			Feedback    string `json:"feedback"`
			ModelAnswer string `json:"modelAnswer"`
		} `json:"review"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &parsed); err != nil {
		return models.Summary{}, fmt.Errorf("parsing summary response: %w", err)
	}

	sum := models.Summary{
		ID:        uuid.NewString(),
		SessionID: req.Session.ID,
		Overall:   parsed.Overall,
		Rubric:    parsed.Rubric,
		Strengths: parsed.Strengths,
		Gaps:      parsed.Gaps,
	}
	byOrdinal := make(map[int]QA, len(req.QA))
	for _, qa := range req.QA {
		byOrdinal[qa.Question.Ordinal] = qa
	}
	for _, r := range parsed.Review {
		item := models.ReviewItem{
			Ordinal:     r.Ordinal,
			Score:       r.Score,
			Feedback:    r.Feedback,
			ModelAnswer: r.ModelAnswer,
		}
		if qa, ok := byOrdinal[r.Ordinal]; ok {
			item.QuestionID = qa.Question.ID
			item.Question = qa.Question.Text
			if qa.Answer != nil {
				item.AnswerText = qa.Answer.ResponseText
			}
		}
		sum.Review = append(sum.Review, item)
	}
	return sum, nil
}
